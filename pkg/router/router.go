package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/questx-lab/chat/config"
	"github.com/questx-lab/chat/pkg/errorx"
	"github.com/rs/cors"
)

type HandlerFunc[Request, Response any] func(ctx context.Context, req *Request) (*Response, error)
type WebsocketHandlerFunc[Request any] func(ctx context.Context, req *Request) error

// MiddlewareFunc runs before the handler. The returned context replaces the
// context of the request, an error stops the request.
type MiddlewareFunc func(ctx context.Context) (context.Context, error)

// CloserFunc runs after the request is done, err is the error returned by a
// middleware or the handler.
type CloserFunc func(ctx context.Context, err error)

type Router struct {
	ctx     context.Context
	inner   *gin.Engine
	befores []MiddlewareFunc
	closers []CloserFunc
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// New creates a router whose handlers inherit every value of ctx.
func New(ctx context.Context) *Router {
	r := &Router{ctx: ctx, inner: gin.New()}
	r.inner.Use(gin.Recovery())

	r.inner.HandleMethodNotAllowed = true
	r.inner.NoMethod(func(c *gin.Context) {
		// Errors are reported in the body, like every other response.
		c.Status(http.StatusOK)

		ctx := r.newContext(c)
		err := errorx.New(errorx.BadRequest, "Method %s is not allowed", c.Request.Method)
		writeResponse(ctx, nil, err)
		r.close(ctx, err)
	})

	return r
}

// Branch returns a router sharing the routes of r. Middlewares added to the
// branch do not affect r.
func (r *Router) Branch() *Router {
	return &Router{
		ctx:     r.ctx,
		inner:   r.inner,
		befores: append([]MiddlewareFunc(nil), r.befores...),
		closers: append([]CloserFunc(nil), r.closers...),
	}
}

func (r *Router) Before(m MiddlewareFunc) {
	r.befores = append(r.befores, m)
}

func (r *Router) AddCloser(c CloserFunc) {
	r.closers = append(r.closers, c)
}

// Handle mounts a plain http.Handler, for example the metrics endpoint.
func (r *Router) Handle(method, pattern string, h http.Handler) {
	r.inner.Handle(method, pattern, gin.WrapH(h))
}

func (r *Router) Handler(cfg config.ServerConfigs) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length", "Authorization"},
		AllowCredentials: true,
	}).Handler(r.inner)
}

func GET[Request, Response any](r *Router, pattern string, handler HandlerFunc[Request, Response]) {
	r.inner.GET(pattern, wrapHandler(r, func(ctx context.Context, c *gin.Context) (any, error) {
		var req Request
		if err := bindQuery(c, &req); err != nil {
			return nil, err
		}

		return handler(ctx, &req)
	}))
}

func POST[Request, Response any](r *Router, pattern string, handler HandlerFunc[Request, Response]) {
	r.inner.POST(pattern, wrapHandler(r, func(ctx context.Context, c *gin.Context) (any, error) {
		var req Request
		if err := bindJSON(c, &req); err != nil {
			return nil, err
		}

		return handler(ctx, &req)
	}))
}

func Websocket[Request any](r *Router, pattern string, handler WebsocketHandlerFunc[Request]) {
	r.inner.GET(pattern, wrapWebsocket(r, func(ctx context.Context, c *gin.Context) error {
		var req Request
		if err := bindQuery(c, &req); err != nil {
			return err
		}

		return handler(ctx, &req)
	}))
}
