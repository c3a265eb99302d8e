package router

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/questx-lab/chat/pkg/errorx"
	"github.com/questx-lab/chat/pkg/ws"
	"github.com/questx-lab/chat/pkg/xcontext"
)

var upgrader = websocket.Upgrader{
	// Origins are checked by the cors handler.
	CheckOrigin: func(*http.Request) bool { return true },
}

func wrapHandler(r *Router, handle func(context.Context, *gin.Context) (any, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := r.newContext(c)

		var err error
		defer func() { r.close(ctx, err) }()

		ctx, err = r.runBefores(ctx)
		if err != nil {
			writeResponse(ctx, nil, err)
			return
		}

		var resp any
		resp, err = handle(ctx, c)
		writeResponse(ctx, resp, err)
	}
}

func wrapWebsocket(r *Router, handle func(context.Context, *gin.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := r.newContext(c)

		var err error
		defer func() { r.close(ctx, err) }()

		ctx, err = r.runBefores(ctx)
		if err != nil {
			writeResponse(ctx, nil, err)
			return
		}

		conn, upgradeErr := upgrader.Upgrade(c.Writer, c.Request, nil)
		if upgradeErr != nil {
			err = errorx.New(errorx.BadRequest, "Cannot upgrade to websocket")
			xcontext.Logger(ctx).Warnf("Cannot upgrade to websocket: %v", upgradeErr)
			return
		}

		wsClient := ws.NewClient(conn, false)
		defer wsClient.Close()

		err = handle(xcontext.WithWSClient(ctx, wsClient), c)
	}
}

func (r *Router) newContext(c *gin.Context) context.Context {
	ctx := &requestContext{Context: c.Request.Context(), values: r.ctx}
	return xcontext.WithResponseWriter(xcontext.WithHTTPRequest(ctx, c.Request), c.Writer)
}

func (r *Router) runBefores(ctx context.Context) (context.Context, error) {
	for _, m := range r.befores {
		var err error
		ctx, err = m(ctx)
		if err != nil {
			return ctx, err
		}
	}

	return ctx, nil
}

func (r *Router) close(ctx context.Context, err error) {
	for _, c := range r.closers {
		c(ctx, err)
	}
}

func bindQuery(c *gin.Context, v any) error {
	if err := c.ShouldBindQuery(v); err != nil {
		return errorx.New(errorx.BadRequest, "Invalid query: %v", err)
	}

	return nil
}

func bindJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return errorx.New(errorx.BadRequest, "Invalid body: %v", err)
	}

	return nil
}

// requestContext is cancelled with the request and carries the values of the
// router context.
type requestContext struct {
	context.Context
	values context.Context
}

func (c *requestContext) Value(key any) any {
	if v := c.Context.Value(key); v != nil {
		return v
	}

	return c.values.Value(key)
}
