package logging

import (
	"io"
	"log/slog"
	"os"
)

// Level maps APP_ENV to a log level: development logs DEBUG, everything else
// INFO.
func Level(appEnv string) slog.Level {
	if appEnv == "development" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Setup initializes the global slog logger with JSON output to stdout.
func Setup(appEnv string) {
	slog.SetDefault(slog.New(NewJSONHandler(os.Stdout, appEnv)))
}

func NewJSONHandler(w io.Writer, appEnv string) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: Level(appEnv)})
}
