package cli

import (
	"context"
	"time"

	"github.com/matzehuels/watermarker/pkg/observability"
)

// debugHooks logs pipeline, font cache and download events at debug level
// through the context logger, so serve requests keep their request_id.
type debugHooks struct{}

func (debugHooks) OnStageStart(ctx context.Context, stage string) {
	loggerFromContext(ctx).Debug("stage started", "stage", stage)
}

func (debugHooks) OnStageComplete(ctx context.Context, stage string, d time.Duration, err error) {
	l := loggerFromContext(ctx)
	if err != nil {
		l.Debug("stage failed", "stage", stage, "duration", d.Round(time.Millisecond), "error", err)
		return
	}
	l.Debug("stage done", "stage", stage, "duration", d.Round(time.Millisecond))
}

func (debugHooks) OnFit(ctx context.Context, mode string, size float64, trials int, converged bool) {
	loggerFromContext(ctx).Debug("caption fitted", "mode", mode, "size", size, "trials", trials, "converged", converged)
}

func (debugHooks) OnCacheHit(ctx context.Context, keyType string) {
	loggerFromContext(ctx).Debug("cache hit", "type", keyType)
}

func (debugHooks) OnCacheMiss(ctx context.Context, keyType string) {
	loggerFromContext(ctx).Debug("cache miss", "type", keyType)
}

func (debugHooks) OnCacheSet(ctx context.Context, keyType string, size int) {
	loggerFromContext(ctx).Debug("cache set", "type", keyType, "bytes", size)
}

func (debugHooks) OnRequest(ctx context.Context, method, host, path string) {
	loggerFromContext(ctx).Debug("fetching", "method", method, "host", host, "path", path)
}

func (debugHooks) OnResponse(ctx context.Context, method, host, path string, status int, d time.Duration) {
	loggerFromContext(ctx).Debug("fetched", "host", host, "path", path, "status", status, "duration", d.Round(time.Millisecond))
}

func (debugHooks) OnError(ctx context.Context, method, host, path string, err error) {
	loggerFromContext(ctx).Debug("fetch failed", "host", host, "path", path, "error", err)
}

// EnableDebugHooks routes observability events to the debug log.
// Call it from main before executing a command.
func EnableDebugHooks() {
	var h debugHooks
	observability.SetPipelineHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
}
