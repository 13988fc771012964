package cmd

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingnanl/infant-guard/internal/buildinfo"
	"github.com/jingnanl/infant-guard/internal/myaudio"
)

func TestVersionFlag(t *testing.T) {
	root := RootCommand(buildinfo.NewContext("1.4.2", "2024-03-20"))
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "infant-guard 1.4.2 (built 2024-03-20)\n", out.String())
}

func TestAnalyzeThroughRoot(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()

	const sr = 16000
	samples := make([]float64, sr)
	for i := range samples {
		samples[i] = 0.2 * math.Sin(2*math.Pi*500*float64(i)/sr)
	}
	data, err := myaudio.EncodeWAVBytes(samples, sr)
	require.NoError(t, err)
	wavPath := filepath.Join(dir, "clip.wav")
	require.NoError(t, os.WriteFile(wavPath, data, 0o600))

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("main:\n  name: nursery\n"), 0o600))

	root := RootCommand(buildinfo.NewContext("test", ""))
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"analyze", wavPath, "--output", "json", "--config", cfgPath})
	require.NoError(t, root.ExecuteContext(t.Context()))

	var res struct {
		SampleRate     int `json:"sampleRate"`
		Classification struct {
			HasCrying bool    `json:"hasCrying"`
			Duration  float64 `json:"duration"`
		} `json:"classification"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, sr, res.SampleRate)
	assert.False(t, res.Classification.HasCrying)
	assert.InDelta(t, 1.0, res.Classification.Duration, 1e-3)
}

func TestAnalyzeRequiresFile(t *testing.T) {
	root := RootCommand(buildinfo.NewContext("test", ""))
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"analyze"})
	require.Error(t, root.Execute())
}
