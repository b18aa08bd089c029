// Package logs installs the default slog handler.
//
// Import it for side effects from every main:
//
//	_ "github.com/netgate-io/netgate/internal/logs"
package logs

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

func init() {
	level := slog.LevelInfo
	if os.Getenv("NETGATE_DEBUG") != "" {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.DateTime,
		}),
	))
}
