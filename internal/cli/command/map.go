package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/syncmesh-go/pkg/datatype"
)

// MapCommand returns the map subcommand group.
func MapCommand() *cli.Command {
	return &cli.Command{
		Name:  "map",
		Usage: "Work with convergent maps",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Fetch a map and print its members",
				ArgsUsage: "KEY",
				Flags:     bucketFlags(),
				Action:    mapGet,
			},
			{
				Name:      "incr",
				Usage:     "Increment a counter member",
				ArgsUsage: "KEY MEMBER",
				Flags: append(bucketFlags(),
					&cli.Int64Flag{
						Name:  "by",
						Value: 1,
						Usage: "Amount to add, negative subtracts",
					},
				),
				Action: mapIncr,
			},
			{
				Name:      "enable",
				Usage:     "Enable a flag member",
				ArgsUsage: "KEY MEMBER",
				Flags:     bucketFlags(),
				Action:    mapEnable,
			},
			{
				Name:      "disable",
				Usage:     "Disable a flag member",
				ArgsUsage: "KEY MEMBER",
				Flags:     bucketFlags(),
				Action:    mapDisable,
			},
			{
				Name:      "assign",
				Usage:     "Assign a register member",
				ArgsUsage: "KEY MEMBER VALUE",
				Flags:     bucketFlags(),
				Action:    mapAssign,
			},
			{
				Name:      "remove",
				Usage:     "Remove a member",
				ArgsUsage: "KEY MEMBER",
				Flags: append(bucketFlags(),
					&cli.StringFlag{
						Name:     "member-type",
						Usage:    "Member datatype: set, counter, register, flag, or map",
						Required: true,
					},
				),
				Action: mapRemove,
			},
		},
	}
}

func mapGet(c *cli.Context) error {
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

	m, err := resolveBucket(c, client).FetchMap(ctx, key)
	if err != nil {
		return err
	}
	return printDatatype(c, key, m)
}

// mapArgs validates the KEY MEMBER argument pair.
func mapArgs(c *cli.Context) (key, member string, err error) {
	key = c.Args().Get(0)
	member = c.Args().Get(1)
	if key == "" || member == "" {
		return "", "", fmt.Errorf("key and member required")
	}
	return key, member, nil
}

func mapIncr(c *cli.Context) error {
	key, member, err := mapArgs(c)
	if err != nil {
		return err
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := actionContext()
	defer cancel()

	// Member increments are context free, so start from an empty map.
	m := datatype.NewMap()
	m.Counters(member).Increment(c.Int64("by"))

	if err := resolveBucket(c, client).Update(ctx, key, m); err != nil {
		return err
	}
	return printDatatype(c, key, m)
}

func mapEnable(c *cli.Context) error {
	key, member, err := mapArgs(c)
	if err != nil {
		return err
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := actionContext()
	defer cancel()

	m := datatype.NewMap()
	m.Flags(member).Enable()

	if err := resolveBucket(c, client).Update(ctx, key, m); err != nil {
		return err
	}
	return printDatatype(c, key, m)
}

func mapDisable(c *cli.Context) error {
	key, member, err := mapArgs(c)
	if err != nil {
		return err
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := actionContext()
	defer cancel()

	// Disabling needs the causal context of an observed enable.
	bucket := resolveBucket(c, client)
	m, err := bucket.FetchMap(ctx, key)
	if err != nil {
		return err
	}
	if err := m.Flags(member).Disable(); err != nil {
		return err
	}

	if err := bucket.Update(ctx, key, m); err != nil {
		return err
	}
	return printDatatype(c, key, m)
}

func mapAssign(c *cli.Context) error {
	key, member, err := mapArgs(c)
	if err != nil {
		return err
	}
	if c.NArg() < 3 {
		return fmt.Errorf("key, member, and value required")
	}
	value := c.Args().Get(2)

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := actionContext()
	defer cancel()

	m := datatype.NewMap()
	if err := m.Registers(member).Assign(value); err != nil {
		return err
	}

	if err := resolveBucket(c, client).Update(ctx, key, m); err != nil {
		return err
	}
	return printDatatype(c, key, m)
}

func mapRemove(c *cli.Context) error {
	key, member, err := mapArgs(c)
	if err != nil {
		return err
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := actionContext()
	defer cancel()

	// Removal needs the causal context of the observed member.
	bucket := resolveBucket(c, client)
	m, err := bucket.FetchMap(ctx, key)
	if err != nil {
		return err
	}
	if err := m.Remove(member, c.String("member-type")); err != nil {
		return err
	}

	if err := bucket.Update(ctx, key, m); err != nil {
		return err
	}
	return printDatatype(c, key, m)
}
