package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"github.com/posener/complete"
	"github.com/willabides/kongplete"

	"github.com/korgan/korg/internal/cli"
	"github.com/korgan/korg/internal/config"
	"github.com/korgan/korg/internal/output"
)

var (
	version = "dev"
)

func main() {
	os.Exit(run())
}

func run() int {
	cliInstance := &cli.CLI{}
	parser := kong.Must(cliInstance,
		kong.Name("korg"),
		kong.Description("Korgan mail from the command line"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)

	// Answers shell completion requests and exits when one is pending.
	kongplete.Complete(parser,
		kongplete.WithPredictor("folder", complete.PredictSet(cli.FolderNames()...)),
		kongplete.WithPredictor("configkey", complete.PredictSet(config.Keys()...)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	kctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		var cliErr *output.CLIError
		if errors.As(err, &cliErr) {
			return output.Report(output.New("plain"), cliErr)
		}
		parser.Errorf("%s", err)
		return output.ExitUsage
	}
	kctx.BindTo(ctx, (*context.Context)(nil))

	if err := kctx.Run(); err != nil {
		return output.Report(output.New("plain"), err)
	}
	return output.ExitOK
}
