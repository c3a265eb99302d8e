package entity

import (
	"context"

	"github.com/questx-lab/chat/pkg/xcontext"
)

func MigrateTable(ctx context.Context) error {
	return xcontext.DB(ctx).AutoMigrate(
		&User{},
		&ChatChannel{},
		&ChatMember{},
		&ChatMessage{},
		&ReadMarker{},
	)
}
