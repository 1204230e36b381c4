package model

import "time"

// 用户角色
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// 用户状态
const (
	UserStatusActive    = "ACTIVE"
	UserStatusSuspended = "SUSPENDED"
	UserStatusBanned    = "BANNED"
)

// User 结构体表示用户模型
type User struct {
	ID           int    `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"` // 密码哈希不应在JSON中暴露
	AvatarURL    string `json:"avatar_url"`
	Role         string `json:"role"`
	Status       string `json:"status"`
	// 停用截止时间，过期后视为恢复正常
	SuspendedUntil *time.Time `json:"suspended_until,omitempty"`
	IsVerified     bool       `json:"is_verified"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsActive 判断用户当前是否可以执行操作
func (u *User) IsActive() bool {
	switch u.Status {
	case UserStatusActive:
		return true
	case UserStatusSuspended:
		// 停用期已过视为恢复
		return u.SuspendedUntil != nil && u.SuspendedUntil.Before(time.Now())
	default:
		return false
	}
}

// UserWithCounts 带统计数据的用户，用于管理员用户列表
type UserWithCounts struct {
	User
	RequestCount     int `json:"request_count"`
	FulfillmentCount int `json:"fulfillment_count"`
	FlagCount        int `json:"flag_count"`
}

// AdminUserDetail 管理员查看的用户详情
type AdminUserDetail struct {
	User         *User      `json:"user"`
	Requests     []*Request `json:"requests"`
	Fulfillments []*Request `json:"fulfillments"`
	Flags        []*Flag    `json:"flags"`
}
