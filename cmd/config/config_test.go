package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingnanl/infant-guard/internal/conf"
)

func TestCommandPrintsSettings(t *testing.T) {
	t.Parallel()

	settings := conf.DefaultSettings()
	settings.Main.Name = "nursery"

	var out bytes.Buffer
	cmd := Command(settings)
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "name: nursery")
	assert.Contains(t, out.String(), "thresholds:")
}

func TestCommandWritesExample(t *testing.T) {
	t.Parallel()

	settings := conf.DefaultSettings()
	settings.Main.Name = "nursery"
	path := filepath.Join(t.TempDir(), "config.yaml")

	var out bytes.Buffer
	cmd := Command(settings)
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--example", "--output", path})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: infant-guard")
	assert.Contains(t, out.String(), path)
}
