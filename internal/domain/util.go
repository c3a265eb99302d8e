package domain

import (
	"context"
	"strconv"

	"github.com/questx-lab/chat/pkg/errorx"
	"github.com/questx-lab/chat/pkg/xcontext"
)

func parseChannelID(id string) (int64, error) {
	if id == "" {
		return 0, errorx.New(errorx.BadRequest, "Require channel id")
	}

	channelID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, errorx.New(errorx.BadRequest, "Invalid channel id")
	}

	return channelID, nil
}

func parseLimit(ctx context.Context, limit int) (int, error) {
	apiCfg := xcontext.Configs(ctx).ApiServer
	if limit == 0 {
		return apiCfg.DefaultLimit, nil
	}

	if limit < 0 {
		return 0, errorx.New(errorx.BadRequest, "Limit must be positive")
	}

	if limit > apiCfg.MaxLimit {
		return 0, errorx.New(errorx.BadRequest, "Exceed the maximum of limit (%d)", apiCfg.MaxLimit)
	}

	return limit, nil
}
