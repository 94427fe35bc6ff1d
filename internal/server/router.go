package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ocdid-hub/ocdid-hub/internal/logging"
	"github.com/ocdid-hub/ocdid-hub/internal/ocdid"
)

// Resolver describes the component that produces identifier sets. It allows
// injecting fakes during tests.
type Resolver interface {
	Identifiers(ctx context.Context, ref ocdid.ReferenceFile) (*ocdid.Result, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(context.Context, ocdid.ReferenceFile) (*ocdid.Result, error)

// Identifiers makes ResolverFunc satisfy Resolver.
func (f ResolverFunc) Identifiers(ctx context.Context, ref ocdid.ReferenceFile) (*ocdid.Result, error) {
	return f(ctx, ref)
}

// AppOptions controls how the Fiber application should behave.
type AppOptions struct {
	Logger     *logrus.Logger
	Resolver   Resolver
	ListenPort int
}

const contextKeyRequestID = "_ocdid_request_id"

// NewApp builds a Fiber application with request id, recovery and access log
// middleware plus the /-/healthz probe. Dataset routes are registered
// separately.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("resolver is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts.Logger))

	app.Get("/-/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	return app, nil
}

// requestContextMiddleware 负责生成请求 ID，并在请求结束后输出访问日志。
func requestContextMiddleware(logger *logrus.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		started := time.Now()
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		err := c.Next()

		fields := logging.RequestFields(reqID, c.Method(), c.Path(), c.Response().StatusCode())
		fields["elapsed_ms"] = time.Since(started).Milliseconds()
		entry := logger.WithFields(fields)
		if err != nil {
			entry.WithError(err).Warn("request_failed")
		} else {
			entry.Info("request")
		}
		return err
	}
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

// RequestContext 返回可传递给 Resolver 的 context，Fiber 未提供时退回 Background。
func RequestContext(c fiber.Ctx) context.Context {
	if ctx := c.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
