package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[screen]\nwidth = 400\n"), 0600))

	l := NewLoader(path, nil)
	defer l.Close()

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Screen.Width)
	assert.Same(t, cfg, l.Config())
}

func TestLoaderRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[gesture]\nvelocity_alpha = 2.0\n"), 0600))

	l := NewLoader(path, nil)
	defer l.Close()

	_, err := l.Load()
	require.Error(t, err)
	assert.Nil(t, l.Config())
}

func TestLoaderWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[screen]\nwidth = 320\n"), 0600))

	l := NewLoader(path, nil)
	defer l.Close()
	_, err := l.Load()
	require.NoError(t, err)

	changed := make(chan *Config, 4)
	l.OnChange(func(c *Config) { changed <- c })
	require.NoError(t, l.Watch())

	require.NoError(t, os.WriteFile(path, []byte("[screen]\nwidth = 640\n"), 0600))

	select {
	case cfg := <-changed:
		assert.Equal(t, 640, cfg.Screen.Width)
		assert.Equal(t, 640, l.Config().Screen.Width)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}
}

func TestLoaderWatchKeepsConfigOnBadReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[screen]\nwidth = 320\n"), 0600))

	l := NewLoader(path, nil)
	defer l.Close()
	_, err := l.Load()
	require.NoError(t, err)
	require.NoError(t, l.Watch())

	require.NoError(t, os.WriteFile(path, []byte("[screen]\nwidth = \"wide\"\n"), 0600))

	select {
	case err := <-l.Errors():
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("no error after invalid write")
	}
	assert.Equal(t, 320, l.Config().Screen.Width)
}

func TestLoaderReloadOnDemand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[screen]\nwidth = 320\n"), 0600))

	l := NewLoader(path, nil)
	defer l.Close()
	_, err := l.Load()
	require.NoError(t, err)

	var got []int
	l.OnChange(func(c *Config) { got = append(got, c.Screen.Width) })

	require.NoError(t, os.WriteFile(path, []byte("[screen]\nwidth = 480\n"), 0600))
	require.NoError(t, l.Reload())
	assert.Equal(t, []int{480}, got)

	require.NoError(t, os.WriteFile(path, []byte("[gesture]\nvelocity_alpha = 2.0\n"), 0600))
	assert.Error(t, l.Reload())
	assert.Equal(t, []int{480}, got)
	assert.Equal(t, 480, l.Config().Screen.Width)

	require.NoError(t, l.Close())
	assert.Error(t, l.Reload())
}
