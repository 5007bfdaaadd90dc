package cmd

import (
	"bytes"
	"testing"

	"churndb/internal/ui"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
)

// resetCommandFlags restores every flag to its default between runs of the
// shared command tree
func resetCommandFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetCommandFlags(sub)
	}
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetCommandFlags(rootCmd)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	ui.SetOutput(&buf)
	t.Cleanup(func() { ui.SetOutput(nil) })

	rootCmd.SetArgs(append([]string{"--no-color"}, args...))
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	output, err := executeCommand(t)
	assert.NoError(t, err)

	assert.Contains(t, output, "churndb")
	assert.Contains(t, output, "customer churn database")
}

func TestRootCommandHelp(t *testing.T) {
	output, err := executeCommand(t, "--help")
	assert.NoError(t, err)

	assert.Contains(t, output, "Available Commands:")
	for _, name := range []string{"setup", "scaffold", "ping", "load", "validate", "cleanup", "version"} {
		assert.Contains(t, output, name)
	}
	assert.Contains(t, output, "--log-level")
}

func TestInvalidCommand(t *testing.T) {
	_, err := executeCommand(t, "invalid-command")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestVersionCommand(t *testing.T) {
	output, err := executeCommand(t, "version")
	assert.NoError(t, err)
	assert.Contains(t, output, "churndb version dev")
	assert.Contains(t, output, "Built at: unknown")
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "debug", firstNonEmpty("", "debug", "warn"))
	assert.Equal(t, "warn", firstNonEmpty("", "", "warn"))
	assert.Equal(t, "", firstNonEmpty())
}
