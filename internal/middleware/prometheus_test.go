package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/questx-lab/chat/internal/common"
	"github.com/questx-lab/chat/pkg/errorx"
	"github.com/questx-lab/chat/pkg/testutil"
	"github.com/questx-lab/chat/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

func Test_Prometheus(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		err    error
		status string
	}{
		{name: "success", path: "/prometheus/ok", status: "0"},
		{name: "errorx", path: "/prometheus/denied", err: errorx.New(errorx.PermissionDenied, "no"), status: "100003"},
		{name: "unknown error", path: "/prometheus/broken", err: errors.New("broken"), status: "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := xcontext.WithHTTPRequest(testutil.MockContext(), httptest.NewRequest(http.MethodGet, tt.path, nil))
			ctx, err := WithStartTime()(ctx)
			require.NoError(t, err)
			require.WithinDuration(t, time.Now(), xcontext.StartTime(ctx), time.Second)

			counter := common.PromCounters[common.HTTPRequestTotal].WithLabelValues(tt.path, tt.status)
			histograms := common.PromHistograms[common.HTTPRequestDurationSeconds]
			series := promtestutil.CollectAndCount(histograms)

			Prometheus()(ctx, tt.err)
			require.Equal(t, float64(1), promtestutil.ToFloat64(counter))
			require.Equal(t, series+1, promtestutil.CollectAndCount(histograms))
		})
	}
}
