package tracing

import (
	"context"
	"fmt"
	"log"
	"time"

	"pdfqa/config"

	clc "github.com/cloudwego/eino-ext/callbacks/cozeloop"
	"github.com/cloudwego/eino/callbacks"
	"github.com/coze-dev/cozeloop-go"
)

// flushDelay gives the cozeloop exporter time to send pending spans on shutdown
const flushDelay = 2 * time.Second

type startKey struct{}

// NewLogHandler returns an eino callback handler that logs every component
// run with its duration.
func NewLogHandler() callbacks.Handler {
	return callbacks.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
			return context.WithValue(ctx, startKey{}, time.Now())
		}).
		OnEndFn(func(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
			log.Printf("[eino] %s done in %s", describe(info), elapsed(ctx))
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
			log.Printf("[eino] %s failed after %s: %v", describe(info), elapsed(ctx), err)
			return ctx
		}).
		Build()
}

// Setup registers the global eino handlers. Cozeloop tracing is added only
// when both credentials are configured. The returned func flushes and closes
// the tracing client.
func Setup(ctx context.Context, cfg config.TracingConfig) (func(), error) {
	handlers := []callbacks.Handler{NewLogHandler()}
	shutdown := func() {}

	if cfg.CozeloopAPIToken != "" && cfg.CozeloopWorkspaceID != "" {
		client, err := cozeloop.NewClient(
			cozeloop.WithAPIToken(cfg.CozeloopAPIToken),
			cozeloop.WithWorkspaceID(cfg.CozeloopWorkspaceID),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create cozeloop client: %w", err)
		}
		handlers = append(handlers, clc.NewLoopHandler(client))
		shutdown = func() {
			time.Sleep(flushDelay)
			client.Close(ctx)
		}
		log.Printf("[tracing] cozeloop enabled for workspace %s", cfg.CozeloopWorkspaceID)
	}

	callbacks.AppendGlobalHandlers(handlers...)
	return shutdown, nil
}

func describe(info *callbacks.RunInfo) string {
	if info == nil {
		return "component"
	}
	if info.Name != "" {
		return fmt.Sprintf("%s(%s)", info.Component, info.Name)
	}
	return fmt.Sprintf("%s(%s)", info.Component, info.Type)
}

func elapsed(ctx context.Context) time.Duration {
	if start, ok := ctx.Value(startKey{}).(time.Time); ok {
		return time.Since(start).Round(time.Millisecond)
	}
	return 0
}
