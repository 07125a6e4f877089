package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/faultline/cmd/faultline/commands"
	ferrors "git.home.luguber.info/inful/faultline/internal/foundation/errors"
	"git.home.luguber.info/inful/faultline/internal/trap"
	"git.home.luguber.info/inful/faultline/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Must(cli,
		kong.Name("faultline"),
		kong.Description("Capture, classify and render runtime faults"),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	err = ctx.Run(&commands.Global{Logger: slog.Default(), Out: os.Stdout}, cli)
	if errors.Is(err, trap.ErrHalted) {
		os.Exit(trap.ExitCode)
	}
	ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
