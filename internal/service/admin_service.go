package service

import (
	"mealswap-backend/internal/errors"
	"mealswap-backend/internal/model"
	"mealswap-backend/internal/repository/interfaces"
	"mealswap-backend/internal/util"
	"time"

	"go.uber.org/zap"
)

// AdminService 按功能模块组织管理员业务逻辑：用户管理与审核标记处理
type AdminService struct {
	userRepo     interfaces.UserRepository
	requestRepo  interfaces.RequestRepository
	flagRepo     interfaces.FlagRepository
	emailService *EmailService
}

// NewAdminService 创建一个新的 AdminService 实例
func NewAdminService(userRepo interfaces.UserRepository, requestRepo interfaces.RequestRepository, flagRepo interfaces.FlagRepository) *AdminService {
	return &AdminService{
		userRepo:     userRepo,
		requestRepo:  requestRepo,
		flagRepo:     flagRepo,
		emailService: NewEmailService(userRepo),
	}
}

// 用户管理
func (s *AdminService) GetUsers(status string) ([]*model.UserWithCounts, error) {
	return s.userRepo.FindAllWithCounts(status)
}

// GetUserDetail 获取用户详情：近期请求、认领记录与全部标记
func (s *AdminService) GetUserDetail(userID int) (*model.AdminUserDetail, error) {
	user, err := s.findUser(userID)
	if err != nil {
		return nil, err
	}

	requests, err := s.requestRepo.FindByRequester(userID, 20)
	if err != nil {
		return nil, err
	}
	fulfillments, err := s.requestRepo.FindByFulfiller(userID, 20)
	if err != nil {
		return nil, err
	}
	flags, err := s.flagRepo.FindByUser(userID)
	if err != nil {
		return nil, err
	}

	return &model.AdminUserDetail{
		User:         user,
		Requests:     requests,
		Fulfillments: fulfillments,
		Flags:        flags,
	}, nil
}

// SuspendUser 停用用户指定天数
func (s *AdminService) SuspendUser(userID, days int) (*model.User, error) {
	user, err := s.findUser(userID)
	if err != nil {
		return nil, err
	}

	if days <= 0 {
		days = 7
	}
	until := time.Now().AddDate(0, 0, days)
	user.Status = model.UserStatusSuspended
	user.SuspendedUntil = &until

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}

	if err := s.emailService.SendSuspensionNotice(user.Email, user.Name, &until); err != nil {
		util.Logger.Error("发送停用通知失败", zap.Error(err))
	}

	util.Logger.Info("用户已停用",
		zap.Int("user_id", userID),
		zap.Time("suspended_until", until))
	return user, nil
}

// UnsuspendUser 解除用户停用
func (s *AdminService) UnsuspendUser(userID int) (*model.User, error) {
	return s.restoreUser(userID)
}

// BanUser 封禁用户
func (s *AdminService) BanUser(userID int) (*model.User, error) {
	user, err := s.findUser(userID)
	if err != nil {
		return nil, err
	}

	user.Status = model.UserStatusBanned
	user.SuspendedUntil = nil

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}

	if err := s.emailService.SendBanNotice(user.Email, user.Name); err != nil {
		util.Logger.Error("发送封禁通知失败", zap.Error(err))
	}

	util.Logger.Info("用户已封禁", zap.Int("user_id", userID))
	return user, nil
}

// UnbanUser 解除用户封禁
func (s *AdminService) UnbanUser(userID int) (*model.User, error) {
	return s.restoreUser(userID)
}

// SetUserRole 设置用户角色
func (s *AdminService) SetUserRole(userID int, role string) (*model.User, error) {
	if role != model.RoleUser && role != model.RoleAdmin {
		return nil, errors.New(errors.ErrValidation, "无效的角色")
	}

	user, err := s.findUser(userID)
	if err != nil {
		return nil, err
	}

	user.Role = role
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}

	util.Logger.Info("用户角色已更新",
		zap.Int("user_id", userID),
		zap.String("role", role))
	return user, nil
}

// 标记管理
func (s *AdminService) GetFlags(status string) ([]*model.Flag, error) {
	return s.flagRepo.FindAll(status)
}

// CreateFlag 手动创建一条审核标记
func (s *AdminService) CreateFlag(userID int, flagType, reason string) (*model.Flag, error) {
	if !model.IsValidFlagType(flagType) {
		return nil, errors.New(errors.ErrValidation, "无效的标记类型")
	}
	if _, err := s.findUser(userID); err != nil {
		return nil, err
	}

	flag := &model.Flag{
		UserID:    userID,
		Type:      flagType,
		Reason:    reason,
		Status:    model.FlagStatusPending,
		CreatedAt: time.Now(),
	}
	if err := s.flagRepo.Create(flag); err != nil {
		return nil, err
	}

	util.Logger.Info("审核标记已创建",
		zap.Int("flag_id", flag.ID),
		zap.Int("user_id", userID),
		zap.String("type", flagType))
	return flag, nil
}

// ResolveFlag 处理标记，只允许置为 DISMISSED 或 ACTIONED
func (s *AdminService) ResolveFlag(flagID int, status, resolution string) (*model.Flag, error) {
	if status != model.FlagStatusDismissed && status != model.FlagStatusActioned {
		return nil, errors.New(errors.ErrValidation, "无效的标记状态")
	}

	flag, err := s.flagRepo.FindByID(flagID)
	if err != nil {
		return nil, err
	}
	if flag == nil {
		return nil, errors.New(errors.ErrFlagNotFound, "标记不存在")
	}

	now := time.Now()
	flag.Status = status
	flag.Resolution = &resolution
	flag.ResolvedAt = &now

	if err := s.flagRepo.Update(flag); err != nil {
		return nil, err
	}

	util.Logger.Info("审核标记已处理",
		zap.Int("flag_id", flagID),
		zap.String("status", status))
	return flag, nil
}

func (s *AdminService) findUser(userID int) (*model.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "查询用户失败", err)
	}
	if user == nil {
		return nil, errors.New(errors.ErrUserNotFound, "用户不存在")
	}
	return user, nil
}

func (s *AdminService) restoreUser(userID int) (*model.User, error) {
	user, err := s.findUser(userID)
	if err != nil {
		return nil, err
	}

	user.Status = model.UserStatusActive
	user.SuspendedUntil = nil

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}

	util.Logger.Info("用户已恢复正常", zap.Int("user_id", userID))
	return user, nil
}
