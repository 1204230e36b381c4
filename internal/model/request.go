package model

import "time"

// 请求状态
const (
	RequestStatusOpen      = "OPEN"
	RequestStatusClaimed   = "CLAIMED"
	RequestStatusFulfilled = "FULFILLED"
	RequestStatusCompleted = "COMPLETED"
	RequestStatusExpired   = "EXPIRED"
	RequestStatusCancelled = "CANCELLED"
)

// 配送方式
const (
	DeliveryMethodPickup   = "PICKUP"
	DeliveryMethodDelivery = "DELIVERY"
)

// Request 结构体表示用餐请求模型
type Request struct {
	ID          int    `json:"id"`
	RequesterID int    `json:"requester_id"`
	FulfillerID *int   `json:"fulfiller_id,omitempty"`
	Status      string `json:"status"`
	// 可接受的取餐地点（食堂ID列表）
	Locations        []string  `json:"locations"`
	TimeWindowStart  time.Time `json:"time_window_start"`
	TimeWindowEnd    time.Time `json:"time_window_end"`
	DeliveryMethod   string    `json:"delivery_method"`
	DeliveryBuilding string    `json:"delivery_building,omitempty"`
	DeliveryNotes    string    `json:"delivery_notes,omitempty"`
	DietaryTags      []string  `json:"dietary_tags"`
	DietaryNotes     string    `json:"dietary_notes,omitempty"`
	// 取餐确认口令，例如 "Blue Falcon 42"
	PickupAlias       string     `json:"pickup_alias"`
	FulfilledLocation *string    `json:"fulfilled_location,omitempty"`
	GrubhubOrderID    *string    `json:"grubhub_order_id,omitempty"`
	ClaimedAt         *time.Time `json:"claimed_at,omitempty"`
	FulfilledAt       *time.Time `json:"fulfilled_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	ExpiresAt         time.Time  `json:"expires_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	Requester         *User      `json:"requester,omitempty"`
	Fulfiller         *User      `json:"fulfiller,omitempty"`
}

// IsTerminal 判断请求是否处于终态
func (r *Request) IsTerminal() bool {
	switch r.Status {
	case RequestStatusCompleted, RequestStatusExpired, RequestStatusCancelled:
		return true
	}
	return false
}

// RequestFilters 请求列表的筛选条件
type RequestFilters struct {
	// Type 取值为 my、open、fulfilling，空表示不限
	Type   string `json:"type"`
	Status string `json:"status"`
	// UserID 为当前查询用户，my/open/fulfilling 筛选时使用
	UserID int `json:"user_id"`
}
