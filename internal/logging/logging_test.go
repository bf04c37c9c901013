package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		hasError bool
	}{
		{"debug", LevelDebug, false},
		{"DEBUG", LevelDebug, false},
		{"info", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"invalid", LevelInfo, true},
		{"", LevelInfo, true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			level, err := ParseLevel(test.input)
			if test.hasError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expected, level)
			assert.Equal(t, strings.TrimSuffix(strings.ToLower(test.input), "ing"), LevelString(level))
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)
	assert.Equal(t, "json", f.String())

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, LevelInfo, cfg.Level)
	assert.Equal(t, FormatText, cfg.Format)
	assert.Equal(t, "stderr", cfg.Output)
	assert.Equal(t, "trackpad", cfg.Component)
	assert.True(t, strings.HasSuffix(cfg.FilePath, filepath.Join("trackpad", "trackpad.log")))
}

func TestJSONOutputCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, &Config{Level: LevelDebug, Format: FormatJSON, Component: "poller"})

	l.Debug("sample", "x", 10)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "sample", rec["msg"])
	assert.Equal(t, "poller", rec["component"])
	assert.EqualValues(t, 10, rec["x"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, &Config{Level: LevelWarn})

	l.Info("hidden")
	l.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, &Config{Level: LevelInfo})

	l.WithComponent("hid").Info("report")

	assert.Contains(t, buf.String(), "component=hid")
	assert.Equal(t, "hid", l.WithComponent("hid").Config().Component)
}

func TestNopDiscards(t *testing.T) {
	l := Nop()
	l.Error("nothing")
	assert.NoError(t, l.Close())
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "trackpad.log")
	l, err := New(&Config{Level: LevelInfo, Output: "file", FilePath: path, MaxSize: 1, MaxBackups: 1})
	require.NoError(t, err)

	l.Info("written to file")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestFileRotatorRotatesBySize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trackpad.log")
	r, err := NewFileRotator(&Config{FilePath: path, MaxSize: 1, MaxBackups: 2})
	require.NoError(t, err)
	defer r.Close()

	chunk := bytes.Repeat([]byte("x"), 600*1024)
	for i := 0; i < 4; i++ {
		_, err := r.Write(chunk)
		require.NoError(t, err)
	}

	assert.FileExists(t, path)
	assert.FileExists(t, path+".1")
	assert.FileExists(t, path+".2")
	assert.NoFileExists(t, path+".3")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.LessOrEqual(t, info.Size(), int64(1024*1024))
}

func TestFileRotatorNoBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trackpad.log")
	r, err := NewFileRotator(&Config{FilePath: path, MaxSize: 1, MaxBackups: 0})
	require.NoError(t, err)
	defer r.Close()

	chunk := bytes.Repeat([]byte("y"), 700*1024)
	for i := 0; i < 3; i++ {
		_, err := r.Write(chunk)
		require.NoError(t, err)
	}
	assert.NoFileExists(t, path+".1")
}
