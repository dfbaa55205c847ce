package util

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestConfigureSlog(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	buf := new(bytes.Buffer)
	ConfigureSlog(buf, SlogOptions{Level: slog.LevelWarn, NoColor: true})

	slog.Info("hidden")
	slog.Warn("staging cleanup failed", "path", "/tmp/x.png")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "staging cleanup failed")
	assert.Contains(t, out, "path=/tmp/x.png")
}
