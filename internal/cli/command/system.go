package command

import (
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/syncmesh-go/internal/infra/buildinfo"
)

// SystemCommand returns the system subcommand group.
func SystemCommand() *cli.Command {
	return &cli.Command{
		Name:    "system",
		Aliases: []string{"sys"},
		Usage:   "Store status commands",
		Subcommands: []*cli.Command{
			{
				Name:   "ping",
				Usage:  "Check that the store answers",
				Action: systemPing,
			},
			{
				Name:   "version",
				Usage:  "Show client build information",
				Action: systemVersion,
			},
		},
	}
}

func systemPing(c *cli.Context) error {
	mgr := GetManager(c)

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := actionContext()
	defer cancel()

	start := time.Now()
	pingErr := client.Ping(ctx)
	latency := time.Since(start).Round(time.Millisecond)

	view := struct {
		Target  string `json:"target" yaml:"target"`
		Status  string `json:"status" yaml:"status"`
		Latency string `json:"latency" yaml:"latency"`
	}{
		Target:  mgr.Target(),
		Status:  "ok",
		Latency: latency.String(),
	}
	if pingErr != nil {
		view.Status = "unreachable"
	}

	formatter, err := formatterFor(c)
	if err != nil {
		return err
	}
	if err := formatter.Format(os.Stdout, view); err != nil {
		return err
	}
	return pingErr
}

func systemVersion(c *cli.Context) error {
	formatter, err := formatterFor(c)
	if err != nil {
		return err
	}
	return formatter.Format(os.Stdout, buildinfo.Get())
}
