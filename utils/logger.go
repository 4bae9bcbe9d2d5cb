package utils

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process-wide logger: human-readable console output
// on stderr, teed as JSON lines to a date-stamped file when logDir is set.
// An unknown level falls back to info.
func NewLogger(logDir, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}

	var w io.Writer = console
	if logDir != "" {
		if file, ferr := openLogFile(logDir); ferr == nil {
			w = zerolog.MultiLevelWriter(console, file)
		}
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// openLogFile opens (creating as needed) <dir>/scraper_YYYY-MM-DD.log for
// appending. The handle lives for the rest of the process.
func openLogFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	name := filepath.Join(dir, "scraper_"+time.Now().Format("2006-01-02")+".log")
	return os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
}
