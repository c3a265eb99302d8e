package entity

import "time"

type ChatMember struct {
	UserID string `gorm:"primaryKey"`
	User   User   `gorm:"foreignKey:UserID"`

	ChannelID int64       `gorm:"primaryKey"`
	Channel   ChatChannel `gorm:"foreignKey:ChannelID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"precision:3"`
}
