package kitty

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Kitty graphics protocol escape sequences
const (
	escStart = "\x1b_G"
	escEnd   = "\x1b\\"
)

// chunkSize is the protocol's hard ceiling per chunk: 4096 characters of
// base64 payload.
const chunkSize = 4096

// Chunk is one escape-framed fragment of a protocol command. Control is the
// comma-separated key=value list; Payload is base64 data, at most 4096
// characters.
type Chunk struct {
	Control string
	Payload string
}

// String serializes the chunk as an APC sequence.
func (c Chunk) String() string {
	return escStart + c.Control + ";" + c.Payload + escEnd
}

// Placement controls where and how an image is displayed relative to the
// cursor cell.
type Placement struct {
	Columns int // c= scale to span this many columns (0 = natural size)
	Rows    int // r= scale to span this many rows
	OffsetX int // X= pixel offset inside the first cell
	OffsetY int // Y= pixel offset inside the first cell
	CropW   int // w= display only this many pixels left to right
	CropH   int // h= display only this many pixels top to bottom
	Z       int // z= stacking order; negative draws behind text
	ID      int // p= placement id; reusing one replaces the previous placement

	NoCursor bool // C=1 leave the cursor where it was instead of moving past the image
}

func (pl Placement) keys(sb *strings.Builder) {
	if pl.Columns > 0 {
		fmt.Fprintf(sb, ",c=%d", pl.Columns)
	}
	if pl.Rows > 0 {
		fmt.Fprintf(sb, ",r=%d", pl.Rows)
	}
	if pl.OffsetX > 0 {
		fmt.Fprintf(sb, ",X=%d", pl.OffsetX)
	}
	if pl.OffsetY > 0 {
		fmt.Fprintf(sb, ",Y=%d", pl.OffsetY)
	}
	if pl.CropW > 0 {
		fmt.Fprintf(sb, ",w=%d", pl.CropW)
	}
	if pl.CropH > 0 {
		fmt.Fprintf(sb, ",h=%d", pl.CropH)
	}
	if pl.Z != 0 {
		fmt.Fprintf(sb, ",z=%d", pl.Z)
	}
	if pl.ID > 0 {
		fmt.Fprintf(sb, ",p=%d", pl.ID)
	}
	if pl.NoCursor {
		sb.WriteString(",C=1")
	}
}

// Transmit encodes a transmit-and-display command (a=T) for p under the
// given image id. The payload is base64 encoded and split at the 4096
// character chunk ceiling: the first chunk carries the full control data,
// continuations carry only the m flag, and exactly the last chunk has m=0.
func Transmit(p *Pixmap, id uint32, pl Placement) []Chunk {
	encoded := base64.StdEncoding.EncodeToString(p.Pix)

	var chunks []Chunk
	for i := 0; i < len(encoded); i += chunkSize {
		end := min(i+chunkSize, len(encoded))
		more := 0
		if end < len(encoded) {
			more = 1
		}

		if i == 0 {
			chunks = append(chunks, Chunk{
				Control: transmitControl(p, id, pl, more),
				Payload: encoded[i:end],
			})
			continue
		}
		chunks = append(chunks, Chunk{
			Control: fmt.Sprintf("m=%d", more),
			Payload: encoded[i:end],
		})
	}

	if len(chunks) == 0 {
		chunks = append(chunks, Chunk{Control: transmitControl(p, id, pl, 0)})
	}
	return chunks
}

func transmitControl(p *Pixmap, id uint32, pl Placement, more int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "a=T,f=%d,i=%d", p.Format, id)
	// Raw formats need explicit dimensions; PNG streams carry their own.
	if p.Format != FormatPNG {
		fmt.Fprintf(&sb, ",s=%d,v=%d", p.Width, p.Height)
	}
	pl.keys(&sb)
	fmt.Fprintf(&sb, ",q=2,m=%d", more)
	return sb.String()
}

// Place displays a previously transmitted image id at the cursor without
// re-sending its pixels.
func Place(id uint32, pl Placement) Chunk {
	var sb strings.Builder
	fmt.Fprintf(&sb, "a=p,i=%d", id)
	pl.keys(&sb)
	sb.WriteString(",q=2")
	return Chunk{Control: sb.String()}
}

// Delete removes an image and frees its stored data along with every
// placement (a=d with d=I).
func Delete(id uint32) Chunk {
	return Chunk{Control: fmt.Sprintf("a=d,d=I,i=%d,q=2", id)}
}

// DeleteAll removes every transmitted image and frees their data.
func DeleteAll() Chunk {
	return Chunk{Control: "a=d,d=A,q=2"}
}

// Query builds a capability probe: a 1x1 RGB transmission sent with a=q is
// validated but never displayed, and the terminal answers with the same id.
func Query(id uint32) Chunk {
	return Chunk{
		Control: fmt.Sprintf("a=q,f=24,i=%d,s=1,v=1,t=d", id),
		Payload: base64.StdEncoding.EncodeToString([]byte{0, 0, 0}),
	}
}
