package main

import (
	"flag"
	"fmt"

	cli "github.com/urfave/cli"
)

// glog reads its configuration from the flag package, so the urfave/cli
// values are pushed back into it before anything logs
func glogShim(c *cli.Context) {
	_ = flag.CommandLine.Parse([]string{})
	fakeVals := map[string]string{
		"v":               fmt.Sprint(c.Int("verbosity")),
		"logtostderr":     fmt.Sprint(c.Bool("logtostderr")),
		"stderrthreshold": fmt.Sprint(c.Int("stderrthreshold")),
		"log_dir":         c.String("log_dir"),
	}
	flag.VisitAll(func(fl *flag.Flag) {
		if val, ok := fakeVals[fl.Name]; ok {
			fl.Value.Set(val)
		}
	})
}

var glogFlags = []cli.Flag{
	cli.IntFlag{
		Name: "verbosity", Value: 0, Usage: "log level for V logs", Hidden: false,
	},
	cli.BoolFlag{
		Name: "logtostderr", Usage: "log to standard error instead of files", Hidden: true,
	},
	cli.IntFlag{
		Name:  "stderrthreshold",
		Usage: "logs at or above this threshold go to stderr", Hidden: true,
	},
	cli.StringFlag{
		Name: "log_dir", Usage: "If non-empty, write log files in this directory", Hidden: true,
	},
}
