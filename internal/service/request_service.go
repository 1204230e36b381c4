package service

import (
	"fmt"
	"mealswap-backend/config"
	"mealswap-backend/internal/alias"
	"mealswap-backend/internal/common"
	"mealswap-backend/internal/dining"
	"mealswap-backend/internal/errors"
	"mealswap-backend/internal/model"
	"mealswap-backend/internal/repository/interfaces"
	"mealswap-backend/internal/util"
	"time"

	"go.uber.org/zap"
)

// RequestService 处理用餐请求的生命周期：
// OPEN → CLAIMED → FULFILLED → COMPLETED，以及取消/释放/过期的分支路径。
// 所有操作都要求显式传入操作者ID，权限检查在此层完成。
type RequestService struct {
	requestRepo interfaces.RequestRepository
	userRepo    interfaces.UserRepository
	flagRepo    interfaces.FlagRepository
}

// NewRequestService 创建一个新的 RequestService 实例
func NewRequestService(requestRepo interfaces.RequestRepository, userRepo interfaces.UserRepository, flagRepo interfaces.FlagRepository) *RequestService {
	return &RequestService{
		requestRepo: requestRepo,
		userRepo:    userRepo,
		flagRepo:    flagRepo,
	}
}

// CreateRequest 创建新的用餐请求
func (s *RequestService) CreateRequest(requesterID int, request *model.Request) error {
	if _, err := s.ensureActiveUser(requesterID); err != nil {
		return err
	}

	// 检查每日创建上限（不含已取消的请求）
	count, err := s.requestRepo.CountCreatedSince(requesterID, startOfToday())
	if err != nil {
		util.Logger.Error("统计当日请求数失败", zap.Error(err))
		return errors.Wrap(errors.ErrDatabase, "统计当日请求数失败", err)
	}
	if count >= config.AppConfig.MaxRequestsPerDay {
		s.raiseRapidRequestsFlag(requesterID)
		return errors.New(errors.ErrRateLimited, "已达到每日请求创建上限")
	}

	if err := validateNewRequest(request); err != nil {
		return err
	}

	now := time.Now()
	request.RequesterID = requesterID
	request.Status = model.RequestStatusOpen
	request.PickupAlias = alias.Generate()
	request.ExpiresAt = request.TimeWindowEnd
	request.CreatedAt = now
	request.UpdatedAt = now

	if err := s.requestRepo.Create(request); err != nil {
		util.Logger.Error("创建请求失败", zap.Error(err))
		return errors.Wrap(errors.ErrDatabase, "创建请求失败", err)
	}

	util.Logger.Info("请求创建成功",
		zap.Int("request_id", request.ID),
		zap.Int("requester_id", requesterID),
		zap.String("pickup_alias", request.PickupAlias))
	return nil
}

// validateNewRequest 校验新请求的输入
func validateNewRequest(request *model.Request) error {
	if len(request.Locations) == 0 {
		return errors.New(errors.ErrValidation, "至少需要选择一个取餐地点")
	}
	for _, loc := range request.Locations {
		if !dining.IsValid(loc) {
			return errors.New(errors.ErrInvalidLocation, "无效的取餐地点: "+loc)
		}
	}
	if !request.TimeWindowStart.Before(request.TimeWindowEnd) {
		return errors.New(errors.ErrValidation, "时间窗口开始必须早于结束")
	}
	switch request.DeliveryMethod {
	case model.DeliveryMethodPickup:
	case model.DeliveryMethodDelivery:
		if request.DeliveryBuilding == "" {
			return errors.New(errors.ErrValidation, "选择配送时必须填写楼栋信息")
		}
	default:
		return errors.New(errors.ErrValidation, "无效的配送方式")
	}
	return nil
}

// ClaimRequest 认领一个开放请求
func (s *RequestService) ClaimRequest(requestID, actingUserID int) (*model.Request, error) {
	if _, err := s.ensureActiveUser(actingUserID); err != nil {
		return nil, err
	}

	request, err := s.findRequest(requestID)
	if err != nil {
		return nil, err
	}

	if request.RequesterID == actingUserID {
		return nil, errors.New(errors.ErrResourceConflict, "不能认领自己发布的请求")
	}
	if request.Status != model.RequestStatusOpen {
		return nil, errors.New(errors.ErrResourceConflict, "请求已不可认领")
	}

	// 检查每日认领上限
	count, err := s.requestRepo.CountClaimedSince(actingUserID, startOfToday())
	if err != nil {
		util.Logger.Error("统计当日认领数失败", zap.Error(err))
		return nil, errors.Wrap(errors.ErrDatabase, "统计当日认领数失败", err)
	}
	if count >= config.AppConfig.MaxClaimsPerDay {
		return nil, errors.New(errors.ErrRateLimited, "已达到每日认领上限")
	}

	// 条件更新保证并发认领只有一个成功
	ok, err := s.requestRepo.Claim(requestID, actingUserID, time.Now())
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "认领请求失败", err)
	}
	if !ok {
		return nil, errors.New(errors.ErrResourceConflict, "请求已不可认领")
	}

	util.Logger.Info("请求认领成功",
		zap.Int("request_id", requestID),
		zap.Int("fulfiller_id", actingUserID))
	return s.findRequest(requestID)
}

// FulfillRequest 标记请求已由认领人完成配餐
func (s *RequestService) FulfillRequest(requestID, actingUserID int, fulfilledLocation string, grubhubOrderID *string) (*model.Request, error) {
	if _, err := s.ensureActiveUser(actingUserID); err != nil {
		return nil, err
	}

	request, err := s.findRequest(requestID)
	if err != nil {
		return nil, err
	}

	if request.Status != model.RequestStatusClaimed {
		return nil, errors.New(errors.ErrResourceConflict, "请求必须先被认领")
	}
	if request.FulfillerID == nil || *request.FulfillerID != actingUserID {
		return nil, errors.New(errors.ErrForbidden, "只有认领人可以标记配餐完成")
	}
	// 对照全局食堂注册表校验取餐地点
	if !dining.IsValid(fulfilledLocation) {
		return nil, errors.New(errors.ErrInvalidLocation, "无效的取餐地点")
	}

	ok, err := s.requestRepo.Fulfill(requestID, actingUserID, fulfilledLocation, grubhubOrderID, time.Now())
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "标记配餐完成失败", err)
	}
	if !ok {
		return nil, errors.New(errors.ErrResourceConflict, "请求状态已变化")
	}

	util.Logger.Info("请求配餐完成",
		zap.Int("request_id", requestID),
		zap.String("fulfilled_location", fulfilledLocation))
	return s.findRequest(requestID)
}

// ReleaseRequest 认领人释放请求，回到开放状态
func (s *RequestService) ReleaseRequest(requestID, actingUserID int) (*model.Request, error) {
	if _, err := s.ensureActiveUser(actingUserID); err != nil {
		return nil, err
	}

	request, err := s.findRequest(requestID)
	if err != nil {
		return nil, err
	}

	if request.Status != model.RequestStatusClaimed {
		return nil, errors.New(errors.ErrResourceConflict, "只能释放已认领的请求")
	}
	if request.FulfillerID == nil || *request.FulfillerID != actingUserID {
		return nil, errors.New(errors.ErrForbidden, "只有认领人可以释放请求")
	}

	ok, err := s.requestRepo.Release(requestID, actingUserID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "释放请求失败", err)
	}
	if !ok {
		return nil, errors.New(errors.ErrResourceConflict, "请求状态已变化")
	}

	util.Logger.Info("请求已释放", zap.Int("request_id", requestID))
	return s.findRequest(requestID)
}

// CompleteRequest 请求者确认已收到餐食
func (s *RequestService) CompleteRequest(requestID, actingUserID int) (*model.Request, error) {
	if _, err := s.ensureActiveUser(actingUserID); err != nil {
		return nil, err
	}

	request, err := s.findRequest(requestID)
	if err != nil {
		return nil, err
	}

	if request.RequesterID != actingUserID {
		return nil, errors.New(errors.ErrForbidden, "只有请求者可以确认完成")
	}
	if request.Status != model.RequestStatusFulfilled {
		return nil, errors.New(errors.ErrResourceConflict, "请求必须先完成配餐")
	}

	ok, err := s.requestRepo.Complete(requestID, time.Now())
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "确认完成失败", err)
	}
	if !ok {
		return nil, errors.New(errors.ErrResourceConflict, "请求状态已变化")
	}

	util.Logger.Info("请求已完成", zap.Int("request_id", requestID))
	return s.findRequest(requestID)
}

// CancelRequest 请求者取消开放请求
func (s *RequestService) CancelRequest(requestID, actingUserID int) (*model.Request, error) {
	if _, err := s.ensureActiveUser(actingUserID); err != nil {
		return nil, err
	}

	request, err := s.findRequest(requestID)
	if err != nil {
		return nil, err
	}

	if request.RequesterID != actingUserID {
		return nil, errors.New(errors.ErrForbidden, "只有请求者可以取消请求")
	}
	if request.Status != model.RequestStatusOpen {
		return nil, errors.New(errors.ErrResourceConflict, "只能取消开放中的请求")
	}

	ok, err := s.requestRepo.Cancel(requestID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "取消请求失败", err)
	}
	if !ok {
		return nil, errors.New(errors.ErrResourceConflict, "请求状态已变化")
	}

	util.Logger.Info("请求已取消", zap.Int("request_id", requestID))
	return s.findRequest(requestID)
}

// GetRequest 获取单个请求
func (s *RequestService) GetRequest(requestID int) (*model.Request, error) {
	return s.findRequest(requestID)
}

// ListRequests 按筛选条件获取请求列表
func (s *RequestService) ListRequests(filters model.RequestFilters) ([]*model.Request, error) {
	requests, err := s.requestRepo.List(filters)
	if err != nil {
		util.Logger.Error("获取请求列表失败", zap.Error(err))
		return nil, errors.Wrap(errors.ErrDatabase, "获取请求列表失败", err)
	}
	return requests, nil
}

// ExpireOverdueRequests 将过期的开放请求置为 EXPIRED，由定时任务调用
func (s *RequestService) ExpireOverdueRequests() error {
	var expired int64
	err := common.WithRetry(func() error {
		var err error
		expired, err = s.requestRepo.ExpireOverdue(time.Now())
		return err
	}, 3)
	if err != nil {
		return err
	}
	if expired > 0 {
		util.Logger.Info("过期请求清理完成", zap.Int64("expired", expired))
	}
	return nil
}

// ReleaseStaleClaims 释放认领后超时未配餐的请求，并为认领人记录一条
// CLAIM_TIMEOUT 标记，由定时任务调用
func (s *RequestService) ReleaseStaleClaims() error {
	cutoff := time.Now().Add(-time.Duration(config.AppConfig.ClaimTimeoutMinutes) * time.Minute)
	requests, err := s.requestRepo.FindClaimedBefore(cutoff)
	if err != nil {
		return err
	}

	for _, request := range requests {
		if request.FulfillerID == nil {
			continue
		}
		fulfillerID := *request.FulfillerID

		ok, err := s.requestRepo.Release(request.ID, fulfillerID)
		if err != nil {
			util.Logger.Error("释放超时认领失败", zap.Error(err), zap.Int("request_id", request.ID))
			continue
		}
		// 条件更新失败说明请求已经推进或被释放，不再记录标记
		if !ok {
			continue
		}

		flag := &model.Flag{
			UserID:    fulfillerID,
			Type:      model.FlagTypeClaimTimeout,
			Reason:    fmt.Sprintf("认领请求 #%d 超过 %d 分钟未配餐", request.ID, config.AppConfig.ClaimTimeoutMinutes),
			Status:    model.FlagStatusPending,
			CreatedAt: time.Now(),
		}
		if err := s.flagRepo.Create(flag); err != nil {
			util.Logger.Error("创建认领超时标记失败", zap.Error(err), zap.Int("user_id", fulfillerID))
		}

		util.Logger.Info("超时认领已释放",
			zap.Int("request_id", request.ID),
			zap.Int("fulfiller_id", fulfillerID))
	}
	return nil
}

// findRequest 读取请求，不存在时返回业务错误
func (s *RequestService) findRequest(requestID int) (*model.Request, error) {
	request, err := s.requestRepo.FindByID(requestID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "查询请求失败", err)
	}
	if request == nil {
		return nil, errors.New(errors.ErrRequestNotFound, "请求不存在")
	}
	return request, nil
}

// ensureActiveUser 校验操作者存在且处于可用状态
func (s *RequestService) ensureActiveUser(userID int) (*model.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "查询用户失败", err)
	}
	if user == nil {
		return nil, errors.New(errors.ErrUserNotFound, "用户不存在")
	}
	if !user.IsActive() {
		util.Logger.Warn("非活跃用户尝试操作",
			zap.Int("user_id", userID),
			zap.String("status", user.Status))
		return nil, errors.New(errors.ErrUserNotActive, "账户已被停用")
	}
	return user, nil
}

// raiseRapidRequestsFlag 触发速率限制时记录一条异常标记，失败不影响主流程
func (s *RequestService) raiseRapidRequestsFlag(userID int) {
	flag := &model.Flag{
		UserID:    userID,
		Type:      model.FlagTypeRapidRequests,
		Reason:    "超出每日请求创建上限",
		Status:    model.FlagStatusPending,
		CreatedAt: time.Now(),
	}
	if err := s.flagRepo.Create(flag); err != nil {
		util.Logger.Error("创建异常标记失败", zap.Error(err), zap.Int("user_id", userID))
	}
}

// startOfToday 返回本地时区的当日零点
func startOfToday() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
