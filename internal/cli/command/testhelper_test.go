package command

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/syncmesh-go/pkg/syncmeshtest"
)

// testEnv wires the app to an in-process store over real HTTP.
type testEnv struct {
	app     *cli.App
	store   *syncmeshtest.Store
	srv     *syncmeshtest.Server
	cfgPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := syncmeshtest.NewStore()
	srv := syncmeshtest.NewServer(store)
	t.Cleanup(srv.Close)
	return &testEnv{
		app:     App(),
		store:   store,
		srv:     srv,
		cfgPath: filepath.Join(t.TempDir(), "cli.yaml"),
	}
}

// run executes one invocation against the test store and returns its
// stdout.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	full := append([]string{"syncmesh-cli", "--endpoint", e.srv.URL(), "--config", e.cfgPath}, args...)
	return e.exec(t, full)
}

// runLocal executes without the endpoint override, for commands that
// only touch the profile config.
func (e *testEnv) runLocal(t *testing.T, args ...string) (string, error) {
	t.Helper()
	full := append([]string{"syncmesh-cli", "--config", e.cfgPath}, args...)
	return e.exec(t, full)
}

func (e *testEnv) exec(t *testing.T, args []string) (string, error) {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	runErr := e.app.Run(args)

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("read captured stdout: %v", err)
	}
	r.Close()
	return buf.String(), runErr
}

// viewJSON mirrors the datatype render shape for --output json checks.
type viewJSON struct {
	Key     string          `json:"key"`
	Type    string          `json:"type"`
	Value   json.RawMessage `json:"value"`
	Context string          `json:"context"`
}

func decodeView(t *testing.T, out string) viewJSON {
	t.Helper()
	var v viewJSON
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode view from %q: %v", out, err)
	}
	return v
}

func decodeValue[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode value from %q: %v", raw, err)
	}
	return v
}
