// Package config loads sqlerd.toml. Every setting has a default, so the file
// is optional; values it sets replace the defaults key by key.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"sqlerd/internal/core"
	"sqlerd/internal/diagram"
	"sqlerd/internal/erd"
	"sqlerd/internal/layout"
	"sqlerd/internal/logging"
	"sqlerd/internal/parser"
	"sqlerd/internal/translate"
)

// DefaultFile is the file looked up when no path is given.
const DefaultFile = "sqlerd.toml"

// Config is the top-level TOML document.
type Config struct {
	Log         logging.Options `toml:"log"`
	Parser      Parser          `toml:"parser"`
	Layout      Layout          `toml:"layout"`
	Diagram     Diagram         `toml:"diagram"`
	Translation Translation     `toml:"translation"`
	Server      Server          `toml:"server"`
}

// Parser maps [parser]: the dialect priority list and the fallback grammar.
type Parser struct {
	Dialects []string `toml:"dialects" validate:"required,min=1,dive,dialect"`
	Fallback string   `toml:"fallback" validate:"omitempty,dialect"`
}

// Layout maps [layout]; all sizes are pixels.
type Layout struct {
	XSpacing     int `toml:"x_spacing" validate:"gt=0"`
	YSpacing     int `toml:"y_spacing" validate:"gt=0"`
	EntityWidth  int `toml:"entity_width" validate:"gt=0"`
	EntityHeight int `toml:"entity_height" validate:"gt=0"`
	RowHeight    int `toml:"row_height" validate:"gt=0"`
	CharWidth    int `toml:"char_width" validate:"gt=0"`
}

// Diagram maps [diagram].
type Diagram struct {
	RelationLabel string `toml:"relation_label"`
	Format        string `toml:"format" validate:"omitempty,oneof=json summary drawio mermaid"`
	PageName      string `toml:"page_name"`
}

// Translation maps [translation]. An empty file disables translation.
type Translation struct {
	File string `toml:"file"`
}

// Server maps [server].
type Server struct {
	Addr           string   `toml:"addr" validate:"required"`
	MaxSQLBytes    int64    `toml:"max_sql_bytes" validate:"gt=0"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Default returns the built-in configuration.
func Default() *Config {
	l := layout.DefaultOptions()
	return &Config{
		Log: logging.DefaultOptions(),
		Parser: Parser{
			Dialects: []string{string(core.DialectMySQL), string(core.DialectPostgreSQL)},
			Fallback: string(core.DialectGeneric),
		},
		Layout: Layout{
			XSpacing:     l.XSpacing,
			YSpacing:     l.YSpacing,
			EntityWidth:  l.EntityWidth,
			EntityHeight: l.EntityHeight,
			RowHeight:    l.RowHeight,
			CharWidth:    l.CharWidth,
		},
		Diagram: Diagram{Format: "drawio", PageName: "Page-1"},
		Server: Server{
			Addr:           ":8080",
			MaxSQLBytes:    1 << 20,
			AllowedOrigins: []string{"*"},
		},
	}
}

// Load reads the file at path over the defaults. An empty path tries
// DefaultFile and silently keeps the defaults when it does not exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	f, err := os.Open(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("config: open file %q: %w", path, err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse decodes TOML over the defaults and validates the result. Unknown
// keys are an error.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	md, err := toml.NewDecoder(r).Decode(cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode error: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config: unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("dialect", func(fl validator.FieldLevel) bool {
		_, err := core.ParseDialect(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

// ParserOptions converts [parser] into prober options.
func (c *Config) ParserOptions() (parser.Options, error) {
	opts := parser.Options{}
	for _, name := range c.Parser.Dialects {
		d, err := core.ParseDialect(name)
		if err != nil {
			return parser.Options{}, err
		}
		opts.Dialects = append(opts.Dialects, d)
	}
	if c.Parser.Fallback != "" {
		d, err := core.ParseDialect(c.Parser.Fallback)
		if err != nil {
			return parser.Options{}, err
		}
		opts.Fallback = d
	}
	return opts, nil
}

// LayoutOptions converts [layout]. The translator is left for the caller.
func (c *Config) LayoutOptions() layout.Options {
	return layout.Options{
		XSpacing:     c.Layout.XSpacing,
		YSpacing:     c.Layout.YSpacing,
		EntityWidth:  c.Layout.EntityWidth,
		EntityHeight: c.Layout.EntityHeight,
		RowHeight:    c.Layout.RowHeight,
		CharWidth:    c.Layout.CharWidth,
	}
}

// Translator returns the configured translator: a FileTranslator when
// [translation] names a file, otherwise Identity labelled with the
// configured relation label.
func (c *Config) Translator() (translate.Translator, error) {
	if c.Translation.File == "" {
		return translate.Identity{Label: c.Diagram.RelationLabel}, nil
	}
	return translate.LoadFile(c.Translation.File, c.Diagram.RelationLabel)
}

// Pipeline assembles the options of every pipeline stage.
func (c *Config) Pipeline(logger *zap.Logger) (erd.Options, error) {
	parserOpts, err := c.ParserOptions()
	if err != nil {
		return erd.Options{}, err
	}
	tr, err := c.Translator()
	if err != nil {
		return erd.Options{}, err
	}
	layoutOpts := c.LayoutOptions()
	layoutOpts.Translator = tr

	return erd.Options{
		Parser:  parserOpts,
		Layout:  layoutOpts,
		Diagram: diagram.Options{PageName: c.Diagram.PageName},
		Logger:  logger,
	}, nil
}
