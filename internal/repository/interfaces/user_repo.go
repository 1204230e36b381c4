package interfaces

import "mealswap-backend/internal/model"

// UserRepository 接口定义了用户仓库应该实现的方法
type UserRepository interface {
	Create(user *model.User) error
	FindByID(id int) (*model.User, error)
	FindByEmail(email string) (*model.User, error)
	Update(user *model.User) error
	Count() (int, error)
	// FindAllWithCounts 返回带请求/认领/标记计数的用户列表，status 为空表示不限
	FindAllWithCounts(status string) ([]*model.UserWithCounts, error)
}
