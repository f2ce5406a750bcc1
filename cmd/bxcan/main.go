package main

import (
	"github.com/alecthomas/kong"
	log "github.com/sirupsen/logrus"

	_ "github.com/samsamfire/gobxcan/pkg/can/loopback"
	_ "github.com/samsamfire/gobxcan/pkg/can/socketcan"
)

var cli struct {
	Debug bool `help:"enable debug logs"`

	Table    tableCmd    `cmd:"" help:"print the interrupt catalog"`
	Decode   decodeCmd   `cmd:"" help:"decode a raw interrupt register value"`
	Simulate simulateCmd `cmd:"" help:"run a simulated peripheral and log every interrupt"`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("bxcan"),
		kong.Description("bxCAN interrupt model tools"),
	)
	if cli.Debug {
		log.SetLevel(log.DebugLevel)
	}
	err := ctx.Run(&kong.Context{})
	ctx.FatalIfErrorf(err)
}
