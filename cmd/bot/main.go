package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/alecthomas/kong"
)

var CLI struct {
	Version kong.VersionFlag

	Serve   ServeCmd   `cmd:"" default:"1" help:"Run the bot, the HTTP API and the scheduler."`
	Migrate MigrateCmd `cmd:"" help:"Apply the database schema and seed tips."`
	Job     JobCmd     `cmd:"" help:"Run one scheduled job and print its report."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("regime-guard-bot"),
		kong.Description("Страж Режима: daily plan, habits and goals Telegram bot"),
		kong.UsageOnError(),
		kong.Vars{"version": "v1.0.0"},
	)

	if err := ctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
