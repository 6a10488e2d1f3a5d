package empmos

import (
	"context"
	"fmt"
	"log/slog"
)

// SlogLogger adapts a *slog.Logger to Logger. Lines are emitted at debug
// level unless another level is given.
func SlogLogger(l *slog.Logger, level ...slog.Level) Logger {
	lvl := slog.LevelDebug
	if len(level) > 0 {
		lvl = level[0]
	}
	return slogAdapter{l: l, level: lvl}
}

type slogAdapter struct {
	l     *slog.Logger
	level slog.Level
}

func (a slogAdapter) Printf(format string, v ...any) {
	a.l.Log(context.Background(), a.level, fmt.Sprintf(format, v...), "component", "empmos")
}
