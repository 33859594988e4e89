package utils

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LogOptions struct {
	Level slog.Leveler
	// File is the log file path; empty disables file logging.
	File       string
	MaxSizeMB  int
	MaxBackups int
	Console    io.Writer
}

// NewLogger builds a logger that writes colored output to the console and
// plain text to a rotated log file. The returned closer flushes the file.
func NewLogger(opts LogOptions) (*slog.Logger, io.Closer) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	noColor := true
	if f, ok := console.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}

	handlers := []slog.Handler{
		tint.NewHandler(console, &tint.Options{
			Level:      opts.Level,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    noColor,
		}),
	}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    max(opts.MaxSizeMB, 1),
			MaxBackups: opts.MaxBackups,
		}
		interceptor := NewLogInterceptor(rotator)
		handlers = append(handlers, slog.NewTextHandler(interceptor, &slog.HandlerOptions{
			Level: slog.LevelDebug,
			// time is added by the interceptor
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey && len(groups) == 0 {
					return slog.Attr{}
				}
				return a
			},
		}))
		closer = interceptor
	}

	return slog.New(NewMultiLogHandler(handlers...)), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
