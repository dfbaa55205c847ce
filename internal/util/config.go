package util

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

type SlogOptions struct {
	Level     slog.Level
	NoColor   bool
	AddSource bool
}

// ParseLevel maps "debug", "info", "warn" and "error" to their slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("parsing log level %q: %w", s, err)
	}
	return l, nil
}

// ConfigureSlog sets a tint handler writing to writeTo as the default slog logger.
// With AddSource, file paths are printed relative to the working dir so that IDEs pick them up.
func ConfigureSlog(writeTo io.Writer, opts SlogOptions) {
	tintOpts := &tint.Options{
		Level:      opts.Level,
		NoColor:    opts.NoColor,
		AddSource:  opts.AddSource,
		TimeFormat: time.DateTime,
	}
	if wd, err := os.Getwd(); err == nil && opts.AddSource {
		unixPath := filepath.ToSlash(wd)
		tintOpts.ReplaceAttr = func(groups []string, attr slog.Attr) slog.Attr {
			if attr.Key != slog.SourceKey {
				return attr
			}
			source, ok := attr.Value.Any().(*slog.Source)
			if !ok {
				return attr
			}
			var sb strings.Builder
			sb.WriteString(".")
			sb.WriteString(strings.TrimPrefix(source.File, unixPath))
			sb.WriteString(":")
			sb.WriteString(strconv.Itoa(source.Line))
			return slog.String(attr.Key, sb.String())
		}
	}
	slog.SetDefault(slog.New(tint.NewHandler(writeTo, tintOpts)))
}
