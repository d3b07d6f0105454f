// Command pixcat displays images on terminals that implement the kitty
// graphics protocol, scaling them to taste first.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"

	"github.com/llehouerou/pixcat/internal/cli"
	"github.com/llehouerou/pixcat/internal/config"
)

var errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

func main() {
	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}

	var root cli.CLI
	kctx := kong.Parse(&root,
		kong.Name("pixcat"),
		kong.Description("Display images on a kitty terminal, with optional resizing."),
		kong.UsageOnError(),
		cli.Vars(cfg),
	)

	if err := kctx.Run(cli.NewApp(cfg)); err != nil {
		// Batch failures were already reported as they happened, and
		// detect is exit-code only; both sentinels exit silently.
		if errors.Is(err, cli.ErrFailed) || errors.Is(err, cli.ErrNoGraphics) {
			os.Exit(1)
		}
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, errStyle.Render("pixcat: "+err.Error()))
	os.Exit(1)
}
