package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/anicoll/baratron-integration/cmd"
)

func main() {
	app := &cli.App{
		Name:      "baratron",
		Usage:     "read an MKS eBaratron pressure gauge over ToolWeb",
		ArgsUsage: "[address]",
		Action:    cmd.PollCommand,
		Flags:     append(cmd.CommonFlags, cmd.PollFlags...),
		Commands: []*cli.Command{
			{
				Name:      "serve",
				Usage:     "poll on a schedule and publish readings over HTTP and MQTT",
				ArgsUsage: "[address]",
				Action:    cmd.ServeCommand,
				Flags:     append(cmd.CommonFlags, cmd.ServeFlags...),
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
