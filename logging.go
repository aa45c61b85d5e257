package fiber

import (
	"io"
	"log"
	"os"

	"euphoria.io/scope"
)

type logCtxKey int

const logCtx logCtxKey = 0
const logFlags = log.LstdFlags

// Logger returns the logger installed by LoggingContext, or a default
// fiber-tagged logger on stdout when the context carries none.
func Logger(ctx scope.Context) *log.Logger {
	if logger, ok := ctx.Get(logCtx).(*log.Logger); ok {
		return logger
	}
	return log.New(os.Stdout, "[fiber] ", logFlags)
}

func LoggingContext(ctx scope.Context, w io.Writer, prefix string) scope.Context {
	logger := log.New(w, prefix, logFlags)
	ctx.Set(logCtx, logger)
	return ctx
}
