package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/anicoll/baratron-integration/internal/pkg/config"
)

// Flags override the environment. Only flags given on the command line take effect.
var CommonFlags = []cli.Flag{
	&cli.DurationFlag{
		Name:  "timeout",
		Usage: "how long to wait for the device to answer a poll",
		Value: config.DefaultTimeout,
	},
	&cli.StringFlag{
		Name:  "log-level",
		Usage: "debug, info, warn or error",
		Value: "INFO",
	},
}

var PollFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:  "stream",
		Usage: "poll continuously and print a table of readings",
	},
	&cli.DurationFlag{
		Name:  "interval",
		Usage: "pause between polls with --stream",
	},
}

var ServeFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "mqtt-host",
		Usage: "broker to publish readings to, e.g. tcp://localhost:1883",
	},
	&cli.StringFlag{
		Name: "mqtt-user",
	},
	&cli.StringFlag{
		Name: "mqtt-pass",
	},
	&cli.StringFlag{
		Name:  "listen",
		Usage: "address of the HTTP server",
		Value: config.DefaultListenAddr,
	},
	&cli.StringFlag{
		Name:  "schedule",
		Usage: "cron expression for polling the device",
		Value: config.DefaultPollSchedule,
	},
}

