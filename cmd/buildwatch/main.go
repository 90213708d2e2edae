package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/buildwatch/cmd/buildwatch/commands"
	ferrors "git.home.luguber.info/inful/buildwatch/internal/foundation/errors"
	"git.home.luguber.info/inful/buildwatch/internal/version"
)

func main() {
	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("buildwatch"),
		kong.Description("Run a project's dev build server as a managed session with a live error report."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := ctx.Run(&commands.Global{Logger: slog.Default()}, cli)
	ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
