package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/syncmesh-go/internal/cli/config"
	"github.com/yndnr/syncmesh-go/internal/cli/connection"
	"github.com/yndnr/syncmesh-go/internal/cli/output"
	"github.com/yndnr/syncmesh-go/internal/infra/buildinfo"
	"github.com/yndnr/syncmesh-go/pkg/datatype"
	"github.com/yndnr/syncmesh-go/pkg/syncmesh"
	"github.com/yndnr/syncmesh-go/pkg/token"
)

// actionTimeout bounds the store round trips of a single command.
const actionTimeout = 30 * time.Second

// App creates the CLI application.
func App() *cli.App {
	app := &cli.App{
		Name:     "syncmesh-cli",
		Usage:    "SyncMesh store command-line client",
		Version:  buildinfo.String(),
		Flags:    globalFlags(),
		Metadata: map[string]any{},
		Commands: []*cli.Command{
			ConnectCommand(),
			SetCommand(),
			CounterCommand(),
			MapCommand(),
			SystemCommand(),
			ReplCommand(),
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			mgr := connection.NewManager(cfg, connection.Overrides{
				Profile:  c.String("profile"),
				Endpoint: c.String("endpoint"),
				APIKey:   c.String("api-key"),
			})
			c.App.Metadata["cliConfig"] = cfg
			c.App.Metadata["connMgr"] = mgr
			return nil
		},
		After: func(c *cli.Context) error {
			if mgr := GetManager(c); mgr != nil {
				return mgr.Close()
			}
			return nil
		},
	}

	return app
}

// globalFlags returns the flags shared by all commands.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "profile",
			Aliases: []string{"p"},
			Usage:   "Connection profile from the CLI config",
			EnvVars: []string{"SYNCMESH_PROFILE"},
		},
		&cli.StringFlag{
			Name:    "endpoint",
			Aliases: []string{"e"},
			Usage:   "Store endpoint, overriding the profile",
			EnvVars: []string{"SYNCMESH_ENDPOINT"},
		},
		&cli.StringFlag{
			Name:    "api-key",
			Aliases: []string{"k"},
			Usage:   "API key for authentication (smak_ prefixed)",
			EnvVars: []string{"SYNCMESH_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.StringFlag{
			Name:    "config",
			Usage:   "CLI config file path",
			EnvVars: []string{"SYNCMESH_CLI_CONFIG"},
		},
	}
}

// GlobalFlags holds the parsed global flag values.
type GlobalFlags struct {
	Profile  string
	Endpoint string
	APIKey   string
	Output   string
	Config   string
}

// ParseGlobalFlags extracts global flags from the context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Profile:  c.String("profile"),
		Endpoint: c.String("endpoint"),
		APIKey:   c.String("api-key"),
		Output:   c.String("output"),
		Config:   c.String("config"),
	}
}

// GetManager retrieves the connection manager installed by the Before
// hook.
func GetManager(c *cli.Context) *connection.Manager {
	if mgr, ok := c.App.Metadata["connMgr"].(*connection.Manager); ok {
		return mgr
	}
	return nil
}

// GetConfig retrieves the loaded CLI configuration.
func GetConfig(c *cli.Context) *config.CLIConfig {
	if cfg, ok := c.App.Metadata["cliConfig"].(*config.CLIConfig); ok {
		return cfg
	}
	return config.Default()
}

// EnsureConnected returns the shared store client.
func EnsureConnected(c *cli.Context) (*syncmesh.Client, error) {
	mgr := GetManager(c)
	if mgr == nil {
		return nil, fmt.Errorf("connection manager not initialized")
	}
	return mgr.Client()
}

// actionContext bounds one command round trip.
func actionContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), actionTimeout)
}

// formatterFor picks the output formatter: the --output flag wins, then
// the config default, then table.
func formatterFor(c *cli.Context) (output.Formatter, error) {
	name := c.String("output")
	if name == "" {
		name = GetConfig(c).DefaultOutput
	}
	format, err := output.ParseFormat(name)
	if err != nil {
		return nil, err
	}
	return output.NewFormatter(format), nil
}

// bucketFlags returns the address flags shared by all datatype commands.
func bucketFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "bucket",
			Aliases: []string{"b"},
			Value:   "default",
			Usage:   "Bucket holding the key",
		},
		&cli.StringFlag{
			Name:  "bucket-type",
			Usage: "Bucket type namespace",
		},
	}
}

// resolveBucket builds the bucket handle addressed by the flags.
func resolveBucket(c *cli.Context, client *syncmesh.Client) *syncmesh.Bucket {
	bucket := c.String("bucket")
	if bucketType := c.String("bucket-type"); bucketType != "" {
		return client.BucketType(bucketType).Bucket(bucket)
	}
	return client.Bucket(bucket)
}

// datatypeView is the render shape shared by all datatype commands.
type datatypeView struct {
	Key     string `json:"key" yaml:"key"`
	Type    string `json:"type" yaml:"type"`
	Value   any    `json:"value" yaml:"value"`
	Context string `json:"context,omitempty" yaml:"context,omitempty"`
}

func newDatatypeView(key string, dt datatype.Datatype) datatypeView {
	return datatypeView{
		Key:     key,
		Type:    dt.TypeName(),
		Value:   datatypeValue(dt),
		Context: token.Mask(string(dt.Context())),
	}
}

// datatypeValue extracts a plain value for rendering.
func datatypeValue(dt datatype.Datatype) any {
	switch v := dt.(type) {
	case *datatype.Set:
		return v.Elements()
	case *datatype.Counter:
		return v.Value()
	case *datatype.Register:
		return v.Value()
	case *datatype.Flag:
		return v.Enabled()
	case *datatype.Map:
		return mapValue(v)
	default:
		return nil
	}
}

// mapValue renders map members keyed by their wire names, nested maps
// recursively.
func mapValue(m *datatype.Map) map[string]any {
	out := make(map[string]any, m.Len())
	for _, key := range m.Keys() {
		member, ok := m.Get(key.Name, key.Type)
		if !ok {
			continue
		}
		out[key.Name+"_"+key.Type] = datatypeValue(member)
	}
	return out
}

// printDatatype renders a fetched or updated datatype to stdout.
func printDatatype(c *cli.Context, key string, dt datatype.Datatype) error {
	formatter, err := formatterFor(c)
	if err != nil {
		return err
	}
	return formatter.Format(os.Stdout, newDatatypeView(key, dt))
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
