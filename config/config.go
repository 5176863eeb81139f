// Package config loads papyrender settings from defaults, a TOML file,
// PAPYRUS_* environment variables and command line flags, in rising priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ByLCY/papyrender/compiler"
	"github.com/ByLCY/papyrender/dom"
	"github.com/ByLCY/papyrender/element"
	"github.com/ByLCY/papyrender/render"
)

// Config holds application configuration.
type Config struct {
	Element  ElementConfig  `mapstructure:"element"`
	Host     HostConfig     `mapstructure:"host"`
	Compiler CompilerConfig `mapstructure:"compiler"`
}

// ElementConfig selects the elements to mount.
type ElementConfig struct {
	Tag    string `mapstructure:"tag"`
	Format string `mapstructure:"format"`
}

// HostConfig holds the default layout values of the host document, in CSS pixels.
type HostConfig struct {
	FontSize     float64 `mapstructure:"font_size"`
	LineHeight   float64 `mapstructure:"line_height"`
	ContentWidth float64 `mapstructure:"content_width"`
	Padding      float64 `mapstructure:"padding"`
}

// CompilerConfig holds fragment compiler settings.
type CompilerConfig struct {
	Font       string         `mapstructure:"font"`
	Minify     bool           `mapstructure:"minify"`
	CacheSize  int            `mapstructure:"cache_size"`
	MaxWidth   float64        `mapstructure:"max_width"`
	PixelRatio float64        `mapstructure:"pixel_ratio"`
	Data       map[string]any `mapstructure:"data"`
}

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"format":      "element.format",
	"tag":         "element.tag",
	"font-size":   "host.font_size",
	"width":       "host.content_width",
	"font":        "compiler.font",
	"minify":      "compiler.minify",
	"pixel-ratio": "compiler.pixel_ratio",
}

// Load reads configuration. An explicit path must exist; without one the
// file named by PAPYRUS_CONFIG or ~/.config/papyrender/config.toml is used
// when present. Flags that were set on flags override everything else.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()

	v.SetDefault("element.tag", dom.DefaultTag)
	v.SetDefault("element.format", "image")
	def := dom.DefaultStyle()
	v.SetDefault("host.font_size", def.FontSize)
	v.SetDefault("host.line_height", def.LineHeight)
	v.SetDefault("host.content_width", def.ContentWidth)
	v.SetDefault("host.padding", 0)
	v.SetDefault("compiler.font", "lmroman")
	v.SetDefault("compiler.minify", true)
	v.SetDefault("compiler.cache_size", 64)
	v.SetDefault("compiler.max_width", 4096)
	v.SetDefault("compiler.pixel_ratio", 1)

	v.SetConfigType("toml")
	explicit := path != ""
	if !explicit {
		path = os.Getenv("PAPYRUS_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "papyrender"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("PAPYRUS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || (!errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist)) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if _, err := c.Format(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Format returns the default element format.
func (c Config) Format() (render.Format, error) {
	return render.ParseFormat(c.Element.Format)
}

// Style returns the host document defaults.
func (c Config) Style() dom.Style {
	p := c.Host.Padding
	return dom.Style{
		FontSize:     c.Host.FontSize,
		LineHeight:   c.Host.LineHeight,
		ContentWidth: c.Host.ContentWidth,
		Padding:      element.Box{Top: p, Right: p, Bottom: p, Left: p},
	}
}

// CompilerOptions returns the options of the fragment compiler.
func (c Config) CompilerOptions() (compiler.Options, error) {
	f, err := c.Format()
	if err != nil {
		return compiler.Options{}, err
	}
	return compiler.Options{
		Format:     f,
		Font:       c.Compiler.Font,
		PixelRatio: c.Compiler.PixelRatio,
		Minify:     c.Compiler.Minify,
		MaxSize:    c.Compiler.MaxWidth,
		Data:       c.Compiler.Data,
	}, nil
}
