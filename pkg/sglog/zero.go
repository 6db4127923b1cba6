package sglog

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Zero is the process-wide structured logger. Packages log through it as
// sglog.Zero.Debug().Str("key", k).Msg("pkg: what happened").
var Zero = NewZeroLogger("")

var logFile *os.File

func NewZeroLogger(filepath string) *zerolog.Logger {
	file, writer := newWriter(filepath)
	if file != nil {
		logFile = file
	}
	return newZeroLogger(writer)
}

func newZeroLogger(w io.Writer) *zerolog.Logger {
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: w != os.Stdout}
	logger := zerolog.New(output).With().Timestamp().Logger()

	return &logger
}

// ReloadLogger reopens the logger on the given file. An empty path keeps
// writing to stdout.
func ReloadLogger(filepath string) {
	if filepath == "" {
		return
	}
	oldFile := logFile
	level := Zero.GetLevel()
	logger := NewZeroLogger(filepath).Level(level)
	Zero = &logger
	if oldFile != nil {
		_ = oldFile.Close()
	}
}

func UpdateZeroLogLevel(logLevel string) error {
	level := parseLevel(logLevel)
	zeroLogger := Zero.With().Logger().Level(level)
	Zero = &zeroLogger
	return nil
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
