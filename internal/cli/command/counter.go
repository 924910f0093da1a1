package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/syncmesh-go/pkg/datatype"
)

// CounterCommand returns the counter subcommand group.
func CounterCommand() *cli.Command {
	return &cli.Command{
		Name:  "counter",
		Usage: "Work with convergent counters",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Fetch a counter value",
				ArgsUsage: "KEY",
				Flags:     bucketFlags(),
				Action:    counterGet,
			},
			{
				Name:      "incr",
				Usage:     "Increment a counter",
				ArgsUsage: "KEY",
				Flags: append(bucketFlags(),
					&cli.Int64Flag{
						Name:  "by",
						Value: 1,
						Usage: "Amount to add, negative subtracts",
					},
				),
				Action: counterIncr,
			},
		},
	}
}

func counterGet(c *cli.Context) error {
	key := c.Args().First()
	if key == "" {
		return fmt.Errorf("key required")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := actionContext()
	defer cancel()

	counter, err := resolveBucket(c, client).FetchCounter(ctx, key)
	if err != nil {
		return err
	}
	return printDatatype(c, key, counter)
}

func counterIncr(c *cli.Context) error {
	key := c.Args().First()
	if key == "" {
		return fmt.Errorf("key required")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := actionContext()
	defer cancel()

	// Counter deltas are context free, so no fetch round trip.
	counter := datatype.NewCounter()
	counter.Increment(c.Int64("by"))

	if err := resolveBucket(c, client).Update(ctx, key, counter); err != nil {
		return err
	}
	return printDatatype(c, key, counter)
}
