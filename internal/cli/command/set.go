package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/syncmesh-go/pkg/datatype"
)

// SetCommand returns the set subcommand group.
func SetCommand() *cli.Command {
	return &cli.Command{
		Name:  "set",
		Usage: "Work with convergent sets",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Fetch a set and print its elements",
				ArgsUsage: "KEY",
				Flags:     bucketFlags(),
				Action:    setGet,
			},
			{
				Name:      "add",
				Usage:     "Add elements to a set",
				ArgsUsage: "KEY ELEMENT [ELEMENT...]",
				Flags:     bucketFlags(),
				Action:    setAdd,
			},
			{
				Name:      "discard",
				Usage:     "Remove elements from a set",
				ArgsUsage: "KEY ELEMENT [ELEMENT...]",
				Flags:     bucketFlags(),
				Action:    setDiscard,
			},
		},
	}
}

func setGet(c *cli.Context) error {
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

	set, err := resolveBucket(c, client).FetchSet(ctx, key)
	if err != nil {
		return err
	}
	return printDatatype(c, key, set)
}

func setAdd(c *cli.Context) error {
	key := c.Args().First()
	elements := c.Args().Tail()
	if key == "" || len(elements) == 0 {
		return fmt.Errorf("key and at least one element required")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := actionContext()
	defer cancel()

	// Additions need no causal context, so skip the fetch round trip.
	set := datatype.NewSet()
	for _, element := range elements {
		if err := set.Add(element); err != nil {
			return err
		}
	}

	if err := resolveBucket(c, client).Update(ctx, key, set); err != nil {
		return err
	}
	return printDatatype(c, key, set)
}

func setDiscard(c *cli.Context) error {
	key := c.Args().First()
	elements := c.Args().Tail()
	if key == "" || len(elements) == 0 {
		return fmt.Errorf("key and at least one element required")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := actionContext()
	defer cancel()

	// Removal is only safe against an observed state, so fetch first to
	// establish the causal context.
	bucket := resolveBucket(c, client)
	set, err := bucket.FetchSet(ctx, key)
	if err != nil {
		return err
	}
	for _, element := range elements {
		if err := set.Discard(element); err != nil {
			return err
		}
	}

	if err := bucket.Update(ctx, key, set); err != nil {
		return err
	}
	return printDatatype(c, key, set)
}
