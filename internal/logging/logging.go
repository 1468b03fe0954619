// Package logging builds the structured logger shared by the CLI and the
// HTTP server.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the logger. With File set, output goes to a rotating
// file instead of stderr.
type Options struct {
	Level      string `toml:"level" validate:"oneof=debug info warn error"`
	Encoding   string `toml:"encoding" validate:"oneof=console json"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `toml:"max_backups" validate:"gte=0"`
}

// DefaultOptions logs warnings and above to stderr in console format.
func DefaultOptions() Options {
	return Options{
		Level:      "warn",
		Encoding:   "console",
		MaxSizeMB:  10,
		MaxBackups: 3,
	}
}

// New builds a logger from opts.
func New(opts Options) (*zap.Logger, error) {
	var ws zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	if opts.File != "" {
		ws = zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		})
	}
	return build(opts, ws)
}

// NewWriter builds a logger that writes to w, ignoring opts.File.
func NewWriter(opts Options, w io.Writer) (*zap.Logger, error) {
	return build(opts, zapcore.AddSync(w))
}

func build(opts Options, ws zapcore.WriteSyncer) (*zap.Logger, error) {
	level := zapcore.WarnLevel
	if opts.Level != "" {
		var err error
		if level, err = zapcore.ParseLevel(opts.Level); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch opts.Encoding {
	case "", "console":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		return nil, fmt.Errorf("invalid log encoding %q", opts.Encoding)
	}

	return zap.New(zapcore.NewCore(enc, ws, level)), nil
}
