package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/syncmesh-go/internal/cli/config"
	"github.com/yndnr/syncmesh-go/pkg/token"
)

// ConnectCommand returns the profile management subcommand group.
func ConnectCommand() *cli.Command {
	return &cli.Command{
		Name:  "connect",
		Usage: "Manage store connection profiles",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Save a connection profile",
				ArgsUsage: "NAME ENDPOINT [ENDPOINT...]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "use",
						Aliases: []string{"u"},
						Usage:   "Make this the current profile",
					},
				},
				Action: connectAdd,
			},
			{
				Name:   "list",
				Usage:  "List saved profiles",
				Action: connectList,
			},
			{
				Name:      "use",
				Usage:     "Switch the current profile",
				ArgsUsage: "NAME",
				Action:    connectUse,
			},
			{
				Name:      "remove",
				Usage:     "Delete a saved profile",
				ArgsUsage: "NAME",
				Action:    connectRemove,
			},
			{
				Name:      "show",
				Usage:     "Show a profile, default the current one",
				ArgsUsage: "[NAME]",
				Action:    connectShow,
			},
		},
	}
}

func connectAdd(c *cli.Context) error {
	name := c.Args().First()
	endpoints := c.Args().Tail()
	if name == "" || len(endpoints) == 0 {
		return fmt.Errorf("profile name and at least one endpoint required")
	}

	cfg := GetConfig(c)
	cfg.Profiles[name] = config.Profile{
		Endpoints: endpoints,
		APIKey:    c.String("api-key"),
	}

	// The first profile becomes current so a fresh setup works without
	// an explicit use.
	if cfg.CurrentProfile == "" || c.Bool("use") {
		cfg.CurrentProfile = name
	}

	if err := config.Save(cfg, c.String("config")); err != nil {
		return err
	}

	fmt.Printf("Profile %q saved.\n", name)
	return nil
}

func connectList(c *cli.Context) error {
	cfg := GetConfig(c)

	type profileRow struct {
		Name      string   `json:"name" yaml:"name"`
		Endpoints []string `json:"endpoints" yaml:"endpoints"`
		Current   string   `json:"current,omitempty" yaml:"current,omitempty"`
	}

	rows := make([]profileRow, 0, len(cfg.Profiles))
	for _, name := range cfg.ProfileNames() {
		row := profileRow{Name: name, Endpoints: cfg.Profiles[name].Endpoints}
		if name == cfg.CurrentProfile {
			row.Current = "*"
		}
		rows = append(rows, row)
	}

	formatter, err := formatterFor(c)
	if err != nil {
		return err
	}
	return formatter.Format(os.Stdout, rows)
}

func connectUse(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("profile name required")
	}

	cfg := GetConfig(c)
	if _, ok := cfg.Profiles[name]; !ok {
		return fmt.Errorf("unknown profile %q", name)
	}

	cfg.CurrentProfile = name
	if err := config.Save(cfg, c.String("config")); err != nil {
		return err
	}

	fmt.Printf("Current profile is now %q.\n", name)
	return nil
}

func connectRemove(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("profile name required")
	}

	cfg := GetConfig(c)
	if _, ok := cfg.Profiles[name]; !ok {
		return fmt.Errorf("unknown profile %q", name)
	}

	delete(cfg.Profiles, name)
	if cfg.CurrentProfile == name {
		cfg.CurrentProfile = ""
	}

	if err := config.Save(cfg, c.String("config")); err != nil {
		return err
	}

	fmt.Printf("Profile %q removed.\n", name)
	return nil
}

func connectShow(c *cli.Context) error {
	cfg := GetConfig(c)

	name := c.Args().First()
	if name == "" {
		name = cfg.CurrentProfile
	}
	if name == "" {
		return fmt.Errorf("no profile selected (see: syncmesh-cli connect list)")
	}

	profile, ok := cfg.Profiles[name]
	if !ok {
		return fmt.Errorf("unknown profile %q", name)
	}

	view := struct {
		Name      string   `json:"name" yaml:"name"`
		Endpoints []string `json:"endpoints" yaml:"endpoints"`
		APIKey    string   `json:"api_key,omitempty" yaml:"api_key,omitempty"`
		Current   bool     `json:"current" yaml:"current"`
	}{
		Name:      name,
		Endpoints: profile.Endpoints,
		APIKey:    token.Mask(profile.APIKey),
		Current:   name == cfg.CurrentProfile,
	}

	formatter, err := formatterFor(c)
	if err != nil {
		return err
	}
	return formatter.Format(os.Stdout, view)
}
