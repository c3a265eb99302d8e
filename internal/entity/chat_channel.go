package entity

type ChatChannel struct {
	SnowFlakeBase
	Name      string
	CreatedBy string
}
