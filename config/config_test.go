package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/papyrender/dom"
	"github.com/ByLCY/papyrender/render"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PAPYRUS_CONFIG", "")
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	c, err := Load("", nil)
	require.NoError(t, err)
	require.Equal(t, dom.DefaultTag, c.Element.Tag)
	require.Equal(t, dom.DefaultStyle().FontSize, c.Host.FontSize)
	require.Equal(t, 64, c.Compiler.CacheSize)
	require.True(t, c.Compiler.Minify)

	f, err := c.Format()
	require.NoError(t, err)
	require.Equal(t, render.FormatImage, f)
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "papyrus.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[element]
format = "svg"

[host]
font_size = 18
padding = 2

[compiler]
font = "lmsans"
cache_size = 8

[compiler.data]
title = "Notes"
`), 0o644))
	t.Setenv("PAPYRUS_HOST_CONTENT_WIDTH", "720")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("font", "", "")
	flags.Float64("font-size", 0, "")
	require.NoError(t, flags.Parse([]string{"--font-size=20"}))

	c, err := Load(path, flags)
	require.NoError(t, err)
	require.Equal(t, "svg", c.Element.Format)
	require.Equal(t, 20.0, c.Host.FontSize, "flags win over the file")
	require.Equal(t, 720.0, c.Host.ContentWidth, "env wins over defaults")
	require.Equal(t, "lmsans", c.Compiler.Font, "unset flags do not override")
	require.Equal(t, 8, c.Compiler.CacheSize)
	require.Equal(t, "Notes", c.Compiler.Data["title"])

	style := c.Style()
	require.Equal(t, 2.0, style.Padding.Left)

	opts, err := c.CompilerOptions()
	require.NoError(t, err)
	require.Equal(t, render.FormatSVG, opts.Format)
	require.Equal(t, "lmsans", opts.Font)
}

func TestLoadErrors(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"), nil)
	require.Error(t, err, "an explicit config file must exist")

	t.Setenv("PAPYRUS_ELEMENT_FORMAT", "pdf")
	_, err = Load("", nil)
	require.Error(t, err)
}
