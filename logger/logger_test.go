package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   DEBUG,
		"":        INFO,
		"Warning": WARN,
		"ERROR":   ERROR,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
	assert.Equal(t, "WARN", WARN.String())
}

func TestLevelFilteringAndFields(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Initialize(Config{Level: INFO, Output: &buf, Prefix: "[test]"}))
	t.Cleanup(Shutdown)

	Debug("hidden %d", 1)
	Info("visible %d", 2)
	WithFields(map[string]interface{}{"b": 2, "a": 1}).Warn("sync fallback")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[INFO] [test] visible 2")
	assert.Contains(t, out, "[WARN] [test] sync fallback | a=1, b=2")

	SetLevel(DEBUG)
	assert.Equal(t, DEBUG, GetLevel())
	Debug("now shown")
	assert.Contains(t, buf.String(), "now shown")
}

func TestDailyFile(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, Initialize(Config{Level: DEBUG, LogDir: dir, FileName: "plm", Output: &buf}))

	Error("disk said %s", "no")
	Shutdown()

	name := filepath.Join(dir, "plm-"+time.Now().Format("2006-01-02")+".log")
	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "[ERROR] disk said no"))
	assert.NotContains(t, string(data), "\033[")
}
