package interfaces

import "mealswap-backend/internal/model"

// FlagRepository 接口定义了审核标记仓库应该实现的方法
type FlagRepository interface {
	Create(flag *model.Flag) error
	FindByID(id int) (*model.Flag, error)
	// FindAll 返回标记列表（带用户信息），status 为空表示不限
	FindAll(status string) ([]*model.Flag, error)
	FindByUser(userID int) ([]*model.Flag, error)
	Update(flag *model.Flag) error
	CountPending() (int, error)
}
