package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/syncmesh-go/internal/cli/repl"
	"github.com/yndnr/syncmesh-go/internal/infra/buildinfo"
	"github.com/yndnr/syncmesh-go/internal/infra/shutdown"
)

// ReplCommand returns the interactive mode command.
func ReplCommand() *cli.Command {
	return &cli.Command{
		Name:   "repl",
		Usage:  "Interactive mode",
		Action: replAction,
	}
}

func replAction(c *cli.Context) error {
	app := c.App

	// Global flags given on the repl invocation carry over to every
	// command typed inside it.
	base := []string{app.Name}
	flags := ParseGlobalFlags(c)
	if flags.Profile != "" {
		base = append(base, "--profile", flags.Profile)
	}
	if flags.Endpoint != "" {
		base = append(base, "--endpoint", flags.Endpoint)
	}
	if flags.APIKey != "" {
		base = append(base, "--api-key", flags.APIKey)
	}
	if flags.Output != "" {
		base = append(base, "--output", flags.Output)
	}
	if flags.Config != "" {
		base = append(base, "--config", flags.Config)
	}

	r := repl.New(func(args []string) error {
		return app.Run(append(append([]string{}, base...), args...))
	})
	r.SetCompleter(repl.NewCompleter(CommandPaths(app)))

	history := r.History()
	if err := history.Load(); err != nil {
		PrintError("loading history failed: %v", err)
	}
	defer history.Save()

	// Ctrl-C must not lose the session's history.
	sd := shutdown.NewHandler(2 * time.Second)
	sd.OnShutdown(func(ctx context.Context) error {
		return history.Save()
	})
	go func() {
		if err := sd.Wait(); err != nil {
			PrintError("saving history on interrupt failed: %v", err)
		}
		os.Exit(130)
	}()

	fmt.Printf("syncmesh-cli %s interactive mode. End a line with ? to list commands, exit to leave.\n", buildinfo.Version)
	return r.Run()
}

// CommandPaths flattens the app's command tree into completion entries.
func CommandPaths(app *cli.App) []string {
	var paths []string
	for _, cmd := range app.Commands {
		walkCommand(&paths, "", cmd)
	}
	return append(paths, "help", "exit", "quit")
}

func walkCommand(paths *[]string, prefix string, cmd *cli.Command) {
	path := cmd.Name
	if prefix != "" {
		path = prefix + " " + cmd.Name
	}
	*paths = append(*paths, path)
	for _, sub := range cmd.Subcommands {
		walkCommand(paths, path, sub)
	}
}
