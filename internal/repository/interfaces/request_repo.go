package interfaces

import (
	"mealswap-backend/internal/model"
	"time"
)

// RequestRepository 接口定义了用餐请求仓库应该实现的方法。
// 状态转换方法均为条件更新（UPDATE ... WHERE status = 旧状态），
// 返回 false 表示当前状态已不满足前置条件，由调用方作为冲突处理。
type RequestRepository interface {
	Create(request *model.Request) error
	FindByID(id int) (*model.Request, error)
	List(filters model.RequestFilters) ([]*model.Request, error)
	FindByRequester(userID, limit int) ([]*model.Request, error)
	FindByFulfiller(userID, limit int) ([]*model.Request, error)

	// 速率限制计数
	CountCreatedSince(userID int, since time.Time) (int, error) // 不含已取消的请求
	CountClaimedSince(userID int, since time.Time) (int, error)

	// 状态转换（原子比较更新）
	Claim(requestID, fulfillerID int, claimedAt time.Time) (bool, error)
	Fulfill(requestID, fulfillerID int, location string, grubhubOrderID *string, fulfilledAt time.Time) (bool, error)
	Release(requestID, fulfillerID int) (bool, error)
	Complete(requestID int, completedAt time.Time) (bool, error)
	Cancel(requestID int) (bool, error)

	// ExpireOverdue 将所有已过期的 OPEN 请求置为 EXPIRED，返回影响行数
	ExpireOverdue(now time.Time) (int64, error)

	// FindClaimedBefore 获取在指定时间之前认领且仍处于 CLAIMED 的请求
	FindClaimedBefore(cutoff time.Time) ([]*model.Request, error)

	// 统计查询
	Count() (int, error)
	CountByStatus() (map[string]int, error)
	CountWithStatusSince(status string, since time.Time) (int, error)
	CountAllCreatedSince(since time.Time) (int, error)
	FindRecent(limit int) ([]*model.Request, error)
}
