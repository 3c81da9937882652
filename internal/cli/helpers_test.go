package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

// cli runs gridcalc commands against one database.
type cli struct {
	t    *testing.T
	args []string
}

func newCLI(t *testing.T, extra ...string) *cli {
	t.Helper()
	db := filepath.Join(t.TempDir(), "sheets.db")
	return &cli{t: t, args: append([]string{"--db", db}, extra...)}
}

// run executes one command and returns stdout, stderr and the error.
func (c *cli) run(args ...string) (string, string, error) {
	c.t.Helper()

	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(append([]string{}, c.args...), args...))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// must executes a command that has to succeed and returns its stdout.
func (c *cli) must(args ...string) string {
	c.t.Helper()
	out, errOut, err := c.run(args...)
	require.NoError(c.t, err, "gridcalc %v\nstderr: %s", args, errOut)
	return out
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}
