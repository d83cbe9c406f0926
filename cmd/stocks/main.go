// Command stocks queries the market gateway from the terminal
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"github.com/go-while/go-stockblog/internal/config"
)

var appVersion = "-unset-"

func main() {
	config.AppVersion = appVersion
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))

	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	for _, c := range Commands {
		commander.Register(c, "market")
	}
	commander.ImportantFlag("apikey")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
