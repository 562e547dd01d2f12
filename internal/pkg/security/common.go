package security

import "time"

const (
	// CallTokenTTL 入会令牌有效期
	CallTokenTTL = 6 * time.Hour
)
