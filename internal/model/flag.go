package model

import "time"

// 标记类型（异常行为分类）
const (
	FlagTypeRapidRequests     = "RAPID_REQUESTS"
	FlagTypeClaimTimeout      = "CLAIM_TIMEOUT"
	FlagTypeConfirmationReuse = "CONFIRMATION_REUSE"
	FlagTypeUnusualPattern    = "UNUSUAL_PATTERN"
)

// 标记状态
const (
	FlagStatusPending   = "PENDING"
	FlagStatusDismissed = "DISMISSED"
	FlagStatusActioned  = "ACTIONED"
)

// Flag 结构体表示针对用户的审核标记
type Flag struct {
	ID         int        `json:"id"`
	UserID     int        `json:"user_id"`
	Type       string     `json:"type"`
	Reason     string     `json:"reason"`
	Status     string     `json:"status"`
	Resolution *string    `json:"resolution,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	User       *User      `json:"user,omitempty"`
}

// IsValidFlagType 校验标记类型是否合法
func IsValidFlagType(t string) bool {
	switch t {
	case FlagTypeRapidRequests, FlagTypeClaimTimeout, FlagTypeConfirmationReuse, FlagTypeUnusualPattern:
		return true
	}
	return false
}
