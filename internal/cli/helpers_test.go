package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testCatalog = `products:
  - id: "1"
    title: Fjallraven Backpack
    price: "109.95"
  - id: "2"
    title: Slim Fit T-Shirt
    price: "22.3"
  - id: "3"
    title: Cotton Jacket
    price: "55.99"
`

// shopEnv is a database and catalog in a temp dir shared by several CLI
// invocations.
type shopEnv struct {
	dir     string
	db      string
	catalog string
}

func newShopEnv(t *testing.T) *shopEnv {
	t.Helper()
	dir := t.TempDir()
	env := &shopEnv{
		dir:     dir,
		db:      filepath.Join(dir, "shop.db"),
		catalog: filepath.Join(dir, "catalog.yaml"),
	}
	require.NoError(t, os.WriteFile(env.catalog, []byte(testCatalog), 0o644))
	return env
}

// run executes the root command with the env's --db and --catalog.
func (e *shopEnv) run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	return runCLI(t, append([]string{"--db", e.db, "--catalog", e.catalog}, args...)...)
}

// runJSON is run with --format json, decoding the single response.
func (e *shopEnv) runJSON(t *testing.T, args ...string) (testResponse, error) {
	t.Helper()
	out, _, err := e.run(t, append([]string{"--format", "json"}, args...)...)
	var resp testResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "stdout: %s", out)
	return resp, err
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// testResponse is CLIResponse with the payload kept raw for typed decoding.
type testResponse struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Warning *CLIError       `json:"warning"`
	Error   *CLIError       `json:"error"`
}

func decodeData[T any](t *testing.T, resp testResponse) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Data, &v), "data: %s", resp.Data)
	return v
}
