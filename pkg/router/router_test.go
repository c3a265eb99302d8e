package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/questx-lab/chat/pkg/errorx"
	"github.com/questx-lab/chat/pkg/testutil"
	"github.com/questx-lab/chat/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

type echoRequest struct {
	Name  string `json:"name" form:"name"`
	Limit int    `json:"limit" form:"limit"`
}

type echoResponse struct {
	Name   string `json:"name"`
	Limit  int    `json:"limit"`
	UserID string `json:"user_id"`
}

func echo(ctx context.Context, req *echoRequest) (*echoResponse, error) {
	if req.Name == "" {
		return nil, errorx.New(errorx.BadRequest, "Require name")
	}

	return &echoResponse{Name: req.Name, Limit: req.Limit, UserID: xcontext.RequestUserID(ctx)}, nil
}

func serve(t *testing.T, h http.Handler, req *http.Request) response {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func Test_Router(t *testing.T) {
	ctx := testutil.MockContext()
	r := New(ctx)

	var closed []error
	r.AddCloser(func(_ context.Context, err error) { closed = append(closed, err) })

	GET(r, "/get", echo)
	POST(r, "/post", echo)

	authed := r.Branch()
	authed.Before(func(ctx context.Context) (context.Context, error) {
		if xcontext.HTTPRequest(ctx).Header.Get("Authorization") == "" {
			return ctx, errorx.New(errorx.Unauthenticated, "Need authentication")
		}

		return xcontext.WithRequestUserID(ctx, "user1"), nil
	})
	GET(authed, "/me", echo)

	h := r.Handler(xcontext.Configs(ctx).ApiServer.ServerConfigs)

	resp := serve(t, h, httptest.NewRequest(http.MethodGet, "/get?name=alice&limit=3", nil))
	require.Equal(t, int64(0), resp.Code)
	require.Equal(t, map[string]any{"name": "alice", "limit": float64(3), "user_id": ""}, resp.Data)

	resp = serve(t, h, httptest.NewRequest(http.MethodPost, "/post", strings.NewReader(`{"name":"bob"}`)))
	require.Equal(t, int64(0), resp.Code)

	resp = serve(t, h, httptest.NewRequest(http.MethodPost, "/post", strings.NewReader(`{}`)))
	require.Equal(t, int64(errorx.BadRequest), resp.Code)
	require.Equal(t, "Require name", resp.Error)

	resp = serve(t, h, httptest.NewRequest(http.MethodPost, "/post", strings.NewReader(`{"name":`)))
	require.Equal(t, int64(errorx.BadRequest), resp.Code)

	resp = serve(t, h, httptest.NewRequest(http.MethodPost, "/get?name=alice", nil))
	require.Equal(t, int64(errorx.BadRequest), resp.Code)

	resp = serve(t, h, httptest.NewRequest(http.MethodGet, "/get?limit=abc", nil))
	require.Equal(t, int64(errorx.BadRequest), resp.Code)

	resp = serve(t, h, httptest.NewRequest(http.MethodGet, "/me?name=carol", nil))
	require.Equal(t, int64(errorx.Unauthenticated), resp.Code)

	req := httptest.NewRequest(http.MethodGet, "/me?name=carol", nil)
	req.Header.Set("Authorization", "Bearer x")
	resp = serve(t, h, req)
	require.Equal(t, int64(0), resp.Code)
	require.Equal(t, "user1", resp.Data.(map[string]any)["user_id"])

	// The branch middleware does not apply to the parent router.
	resp = serve(t, h, httptest.NewRequest(http.MethodGet, "/get?name=dave", nil))
	require.Equal(t, int64(0), resp.Code)

	require.Len(t, closed, 9)
	require.NoError(t, closed[0])
	require.Error(t, closed[2])
}
