package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/questx-lab/chat/internal/common"
	"github.com/questx-lab/chat/pkg/errorx"
	"github.com/questx-lab/chat/pkg/router"
	"github.com/questx-lab/chat/pkg/xcontext"
)

func WithStartTime() router.MiddlewareFunc {
	return func(ctx context.Context) (context.Context, error) {
		return xcontext.WithStartTime(ctx, time.Now()), nil
	}
}

// Prometheus records the request under its path and the errorx code of the
// result, 0 on success and -1 for an unknown error.
func Prometheus() router.CloserFunc {
	return func(ctx context.Context, err error) {
		code := 0
		if err != nil {
			var errx errorx.Error
			if errors.As(err, &errx) {
				code = int(errx.Code)
			} else {
				code = -1
			}
		}

		path := xcontext.HTTPRequest(ctx).URL.Path
		status := fmt.Sprint(code)

		common.PromCounters[common.HTTPRequestTotal].WithLabelValues(path, status).Inc()

		startTime := xcontext.StartTime(ctx)
		if !startTime.IsZero() {
			common.PromHistograms[common.HTTPRequestDurationSeconds].
				WithLabelValues(path, status).Observe(time.Since(startTime).Seconds())
		}
	}
}
