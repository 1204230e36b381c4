package service

import (
	"mealswap-backend/config"
	"mealswap-backend/internal/alias"
	"mealswap-backend/internal/errors"
	"mealswap-backend/internal/model"
	"mealswap-backend/internal/util"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestMain(m *testing.M) {
	util.InitLogger("error")
	config.AppConfig.MaxRequestsPerDay = 2
	config.AppConfig.MaxClaimsPerDay = 5
	config.AppConfig.ClaimTimeoutMinutes = 30
	os.Exit(m.Run())
}

// MockRequestRepository 是 RequestRepository 接口的模拟实现
type MockRequestRepository struct {
	mock.Mock
}

func (m *MockRequestRepository) Create(request *model.Request) error {
	args := m.Called(request)
	return args.Error(0)
}

func (m *MockRequestRepository) FindByID(id int) (*model.Request, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Request), args.Error(1)
}

func (m *MockRequestRepository) List(filters model.RequestFilters) ([]*model.Request, error) {
	args := m.Called(filters)
	return args.Get(0).([]*model.Request), args.Error(1)
}

func (m *MockRequestRepository) FindByRequester(userID, limit int) ([]*model.Request, error) {
	args := m.Called(userID, limit)
	return args.Get(0).([]*model.Request), args.Error(1)
}

func (m *MockRequestRepository) FindByFulfiller(userID, limit int) ([]*model.Request, error) {
	args := m.Called(userID, limit)
	return args.Get(0).([]*model.Request), args.Error(1)
}

func (m *MockRequestRepository) CountCreatedSince(userID int, since time.Time) (int, error) {
	args := m.Called(userID, since)
	return args.Int(0), args.Error(1)
}

func (m *MockRequestRepository) CountClaimedSince(userID int, since time.Time) (int, error) {
	args := m.Called(userID, since)
	return args.Int(0), args.Error(1)
}

func (m *MockRequestRepository) Claim(requestID, fulfillerID int, claimedAt time.Time) (bool, error) {
	args := m.Called(requestID, fulfillerID, claimedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockRequestRepository) Fulfill(requestID, fulfillerID int, location string, grubhubOrderID *string, fulfilledAt time.Time) (bool, error) {
	args := m.Called(requestID, fulfillerID, location, grubhubOrderID, fulfilledAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockRequestRepository) Release(requestID, fulfillerID int) (bool, error) {
	args := m.Called(requestID, fulfillerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRequestRepository) Complete(requestID int, completedAt time.Time) (bool, error) {
	args := m.Called(requestID, completedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockRequestRepository) Cancel(requestID int) (bool, error) {
	args := m.Called(requestID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRequestRepository) ExpireOverdue(now time.Time) (int64, error) {
	args := m.Called(now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRequestRepository) FindClaimedBefore(cutoff time.Time) ([]*model.Request, error) {
	args := m.Called(cutoff)
	return args.Get(0).([]*model.Request), args.Error(1)
}

func (m *MockRequestRepository) Count() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

func (m *MockRequestRepository) CountByStatus() (map[string]int, error) {
	args := m.Called()
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *MockRequestRepository) CountWithStatusSince(status string, since time.Time) (int, error) {
	args := m.Called(status, since)
	return args.Int(0), args.Error(1)
}

func (m *MockRequestRepository) CountAllCreatedSince(since time.Time) (int, error) {
	args := m.Called(since)
	return args.Int(0), args.Error(1)
}

func (m *MockRequestRepository) FindRecent(limit int) ([]*model.Request, error) {
	args := m.Called(limit)
	return args.Get(0).([]*model.Request), args.Error(1)
}

// MockFlagRepository 是 FlagRepository 接口的模拟实现
type MockFlagRepository struct {
	mock.Mock
}

func (m *MockFlagRepository) Create(flag *model.Flag) error {
	args := m.Called(flag)
	return args.Error(0)
}

func (m *MockFlagRepository) FindByID(id int) (*model.Flag, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Flag), args.Error(1)
}

func (m *MockFlagRepository) FindAll(status string) ([]*model.Flag, error) {
	args := m.Called(status)
	return args.Get(0).([]*model.Flag), args.Error(1)
}

func (m *MockFlagRepository) FindByUser(userID int) ([]*model.Flag, error) {
	args := m.Called(userID)
	return args.Get(0).([]*model.Flag), args.Error(1)
}

func (m *MockFlagRepository) Update(flag *model.Flag) error {
	args := m.Called(flag)
	return args.Error(0)
}

func (m *MockFlagRepository) CountPending() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

func activeUser(id int) *model.User {
	return &model.User{
		ID:     id,
		Email:  "test@example.com",
		Name:   "测试用户",
		Role:   model.RoleUser,
		Status: model.UserStatusActive,
	}
}

func openRequest(id, requesterID int) *model.Request {
	now := time.Now()
	return &model.Request{
		ID:              id,
		RequesterID:     requesterID,
		Status:          model.RequestStatusOpen,
		Locations:       []string{"scott", "morrill"},
		TimeWindowStart: now.Add(1 * time.Hour),
		TimeWindowEnd:   now.Add(3 * time.Hour),
		DeliveryMethod:  model.DeliveryMethodPickup,
		PickupAlias:     "Blue Falcon 42",
		ExpiresAt:       now.Add(3 * time.Hour),
	}
}

func newTestRequestService() (*RequestService, *MockRequestRepository, *MockUserRepository, *MockFlagRepository) {
	requestRepo := new(MockRequestRepository)
	userRepo := new(MockUserRepository)
	flagRepo := new(MockFlagRepository)
	return NewRequestService(requestRepo, userRepo, flagRepo), requestRepo, userRepo, flagRepo
}

// TestCreateRequest 测试创建请求
func TestCreateRequest(t *testing.T) {
	svc, requestRepo, userRepo, _ := newTestRequestService()

	userRepo.On("FindByID", 1).Return(activeUser(1), nil)
	requestRepo.On("CountCreatedSince", 1, mock.AnythingOfType("time.Time")).Return(0, nil)
	requestRepo.On("Create", mock.AnythingOfType("*model.Request")).Return(nil)

	now := time.Now()
	req := &model.Request{
		Locations:       []string{"scott"},
		TimeWindowStart: now.Add(1 * time.Hour),
		TimeWindowEnd:   now.Add(2 * time.Hour),
		DeliveryMethod:  model.DeliveryMethodPickup,
	}

	err := svc.CreateRequest(1, req)

	assert.NoError(t, err)
	assert.Equal(t, model.RequestStatusOpen, req.Status)
	assert.Equal(t, 1, req.RequesterID)
	assert.True(t, alias.IsValid(req.PickupAlias))
	assert.Equal(t, req.TimeWindowEnd, req.ExpiresAt)
	requestRepo.AssertExpectations(t)
}

// TestCreateRequestRateLimited 测试超出每日创建上限时拒绝并记录标记
func TestCreateRequestRateLimited(t *testing.T) {
	svc, requestRepo, userRepo, flagRepo := newTestRequestService()

	userRepo.On("FindByID", 1).Return(activeUser(1), nil)
	requestRepo.On("CountCreatedSince", 1, mock.AnythingOfType("time.Time")).Return(2, nil)
	flagRepo.On("Create", mock.MatchedBy(func(f *model.Flag) bool {
		return f.UserID == 1 && f.Type == model.FlagTypeRapidRequests && f.Status == model.FlagStatusPending
	})).Return(nil)

	now := time.Now()
	req := &model.Request{
		Locations:       []string{"scott"},
		TimeWindowStart: now.Add(1 * time.Hour),
		TimeWindowEnd:   now.Add(2 * time.Hour),
		DeliveryMethod:  model.DeliveryMethodPickup,
	}

	err := svc.CreateRequest(1, req)

	assert.True(t, errors.Is(err, errors.ErrRateLimited))
	flagRepo.AssertExpectations(t)
	requestRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestCreateRequestInvalidLocation(t *testing.T) {
	svc, requestRepo, userRepo, _ := newTestRequestService()

	userRepo.On("FindByID", 1).Return(activeUser(1), nil)
	requestRepo.On("CountCreatedSince", 1, mock.AnythingOfType("time.Time")).Return(0, nil)

	now := time.Now()
	req := &model.Request{
		Locations:       []string{"nonexistent-hall"},
		TimeWindowStart: now.Add(1 * time.Hour),
		TimeWindowEnd:   now.Add(2 * time.Hour),
		DeliveryMethod:  model.DeliveryMethodPickup,
	}

	err := svc.CreateRequest(1, req)
	assert.True(t, errors.Is(err, errors.ErrInvalidLocation))
	requestRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestCreateRequestDeliveryNeedsBuilding(t *testing.T) {
	svc, requestRepo, userRepo, _ := newTestRequestService()

	userRepo.On("FindByID", 1).Return(activeUser(1), nil)
	requestRepo.On("CountCreatedSince", 1, mock.AnythingOfType("time.Time")).Return(0, nil)

	now := time.Now()
	req := &model.Request{
		Locations:       []string{"scott"},
		TimeWindowStart: now.Add(1 * time.Hour),
		TimeWindowEnd:   now.Add(2 * time.Hour),
		DeliveryMethod:  model.DeliveryMethodDelivery,
	}

	err := svc.CreateRequest(1, req)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

// TestClaimRequest 测试认领请求
func TestClaimRequest(t *testing.T) {
	svc, requestRepo, userRepo, _ := newTestRequestService()

	open := openRequest(10, 1)
	claimed := openRequest(10, 1)
	claimed.Status = model.RequestStatusClaimed
	fulfillerID := 2
	claimed.FulfillerID = &fulfillerID

	userRepo.On("FindByID", 2).Return(activeUser(2), nil)
	requestRepo.On("FindByID", 10).Return(open, nil).Once()
	requestRepo.On("CountClaimedSince", 2, mock.AnythingOfType("time.Time")).Return(0, nil)
	requestRepo.On("Claim", 10, 2, mock.AnythingOfType("time.Time")).Return(true, nil)
	requestRepo.On("FindByID", 10).Return(claimed, nil).Once()

	result, err := svc.ClaimRequest(10, 2)

	assert.NoError(t, err)
	assert.Equal(t, model.RequestStatusClaimed, result.Status)
	assert.Equal(t, 2, *result.FulfillerID)
	requestRepo.AssertExpectations(t)
}

func TestClaimOwnRequest(t *testing.T) {
	svc, requestRepo, userRepo, _ := newTestRequestService()

	userRepo.On("FindByID", 1).Return(activeUser(1), nil)
	requestRepo.On("FindByID", 10).Return(openRequest(10, 1), nil)

	_, err := svc.ClaimRequest(10, 1)
	assert.True(t, errors.Is(err, errors.ErrResourceConflict))
}

// TestClaimRequestConflict 并发竞争下条件更新失败应返回冲突
func TestClaimRequestConflict(t *testing.T) {
	svc, requestRepo, userRepo, _ := newTestRequestService()

	userRepo.On("FindByID", 2).Return(activeUser(2), nil)
	requestRepo.On("FindByID", 10).Return(openRequest(10, 1), nil)
	requestRepo.On("CountClaimedSince", 2, mock.AnythingOfType("time.Time")).Return(0, nil)
	requestRepo.On("Claim", 10, 2, mock.AnythingOfType("time.Time")).Return(false, nil)

	_, err := svc.ClaimRequest(10, 2)
	assert.True(t, errors.Is(err, errors.ErrResourceConflict))
}

func TestClaimRequestRateLimited(t *testing.T) {
	svc, requestRepo, userRepo, _ := newTestRequestService()

	userRepo.On("FindByID", 2).Return(activeUser(2), nil)
	requestRepo.On("FindByID", 10).Return(openRequest(10, 1), nil)
	requestRepo.On("CountClaimedSince", 2, mock.AnythingOfType("time.Time")).Return(5, nil)

	_, err := svc.ClaimRequest(10, 2)
	assert.True(t, errors.Is(err, errors.ErrRateLimited))
	requestRepo.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything, mock.Anything)
}

// TestClaimRequestSuspendedUser 停用中的用户不能认领
func TestClaimRequestSuspendedUser(t *testing.T) {
	svc, _, userRepo, _ := newTestRequestService()

	suspended := activeUser(2)
	suspended.Status = model.UserStatusSuspended
	until := time.Now().Add(24 * time.Hour)
	suspended.SuspendedUntil = &until

	userRepo.On("FindByID", 2).Return(suspended, nil)

	_, err := svc.ClaimRequest(10, 2)
	assert.True(t, errors.Is(err, errors.ErrUserNotActive))
}

// TestFulfillRequest 测试配餐完成
func TestFulfillRequest(t *testing.T) {
	svc, requestRepo, userRepo, _ := newTestRequestService()

	claimed := openRequest(10, 1)
	claimed.Status = model.RequestStatusClaimed
	fulfillerID := 2
	claimed.FulfillerID = &fulfillerID

	fulfilled := openRequest(10, 1)
	fulfilled.Status = model.RequestStatusFulfilled
	fulfilled.FulfillerID = &fulfillerID
	location := "scott"
	fulfilled.FulfilledLocation = &location

	userRepo.On("FindByID", 2).Return(activeUser(2), nil)
	requestRepo.On("FindByID", 10).Return(claimed, nil).Once()
	requestRepo.On("Fulfill", 10, 2, "scott", (*string)(nil), mock.AnythingOfType("time.Time")).Return(true, nil)
	requestRepo.On("FindByID", 10).Return(fulfilled, nil).Once()

	result, err := svc.FulfillRequest(10, 2, "scott", nil)

	assert.NoError(t, err)
	assert.Equal(t, model.RequestStatusFulfilled, result.Status)
	requestRepo.AssertExpectations(t)
}

func TestFulfillRequestNotFulfiller(t *testing.T) {
	svc, requestRepo, userRepo, _ := newTestRequestService()

	claimed := openRequest(10, 1)
	claimed.Status = model.RequestStatusClaimed
	fulfillerID := 2
	claimed.FulfillerID = &fulfillerID

	userRepo.On("FindByID", 3).Return(activeUser(3), nil)
	requestRepo.On("FindByID", 10).Return(claimed, nil)

	_, err := svc.FulfillRequest(10, 3, "scott", nil)
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}

func TestFulfillRequestInvalidLocation(t *testing.T) {
	svc, requestRepo, userRepo, _ := newTestRequestService()

	claimed := openRequest(10, 1)
	claimed.Status = model.RequestStatusClaimed
	fulfillerID := 2
	claimed.FulfillerID = &fulfillerID

	userRepo.On("FindByID", 2).Return(activeUser(2), nil)
	requestRepo.On("FindByID", 10).Return(claimed, nil)

	_, err := svc.FulfillRequest(10, 2, "not-a-hall", nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidLocation))
}

// TestReleaseRequest 测试认领人释放请求
func TestReleaseRequest(t *testing.T) {
	svc, requestRepo, userRepo, _ := newTestRequestService()

	claimed := openRequest(10, 1)
	claimed.Status = model.RequestStatusClaimed
	fulfillerID := 2
	claimed.FulfillerID = &fulfillerID

	reopened := openRequest(10, 1)

	userRepo.On("FindByID", 2).Return(activeUser(2), nil)
	requestRepo.On("FindByID", 10).Return(claimed, nil).Once()
	requestRepo.On("Release", 10, 2).Return(true, nil)
	requestRepo.On("FindByID", 10).Return(reopened, nil).Once()

	result, err := svc.ReleaseRequest(10, 2)

	assert.NoError(t, err)
	assert.Equal(t, model.RequestStatusOpen, result.Status)
	assert.Nil(t, result.FulfillerID)
}

// TestCompleteRequest 测试请求者确认完成
func TestCompleteRequest(t *testing.T) {
	svc, requestRepo, userRepo, _ := newTestRequestService()

	fulfilled := openRequest(10, 1)
	fulfilled.Status = model.RequestStatusFulfilled
	fulfillerID := 2
	fulfilled.FulfillerID = &fulfillerID

	completed := openRequest(10, 1)
	completed.Status = model.RequestStatusCompleted
	completed.FulfillerID = &fulfillerID

	userRepo.On("FindByID", 1).Return(activeUser(1), nil)
	requestRepo.On("FindByID", 10).Return(fulfilled, nil).Once()
	requestRepo.On("Complete", 10, mock.AnythingOfType("time.Time")).Return(true, nil)
	requestRepo.On("FindByID", 10).Return(completed, nil).Once()

	result, err := svc.CompleteRequest(10, 1)

	assert.NoError(t, err)
	assert.Equal(t, model.RequestStatusCompleted, result.Status)
}

func TestCompleteRequestWrongStatus(t *testing.T) {
	svc, requestRepo, userRepo, _ := newTestRequestService()

	claimed := openRequest(10, 1)
	claimed.Status = model.RequestStatusClaimed

	userRepo.On("FindByID", 1).Return(activeUser(1), nil)
	requestRepo.On("FindByID", 10).Return(claimed, nil)

	_, err := svc.CompleteRequest(10, 1)
	assert.True(t, errors.Is(err, errors.ErrResourceConflict))
}

// TestCancelRequest 测试请求者取消开放请求
func TestCancelRequest(t *testing.T) {
	svc, requestRepo, userRepo, _ := newTestRequestService()

	open := openRequest(10, 1)
	cancelled := openRequest(10, 1)
	cancelled.Status = model.RequestStatusCancelled

	userRepo.On("FindByID", 1).Return(activeUser(1), nil)
	requestRepo.On("FindByID", 10).Return(open, nil).Once()
	requestRepo.On("Cancel", 10).Return(true, nil)
	requestRepo.On("FindByID", 10).Return(cancelled, nil).Once()

	result, err := svc.CancelRequest(10, 1)

	assert.NoError(t, err)
	assert.Equal(t, model.RequestStatusCancelled, result.Status)
}

func TestCancelRequestNotRequester(t *testing.T) {
	svc, requestRepo, userRepo, _ := newTestRequestService()

	userRepo.On("FindByID", 2).Return(activeUser(2), nil)
	requestRepo.On("FindByID", 10).Return(openRequest(10, 1), nil)

	_, err := svc.CancelRequest(10, 2)
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}

func TestCancelRequestNotOpen(t *testing.T) {
	svc, requestRepo, userRepo, _ := newTestRequestService()

	claimed := openRequest(10, 1)
	claimed.Status = model.RequestStatusClaimed

	userRepo.On("FindByID", 1).Return(activeUser(1), nil)
	requestRepo.On("FindByID", 10).Return(claimed, nil)

	_, err := svc.CancelRequest(10, 1)
	assert.True(t, errors.Is(err, errors.ErrResourceConflict))
}

func TestRequestNotFound(t *testing.T) {
	svc, requestRepo, userRepo, _ := newTestRequestService()

	userRepo.On("FindByID", 1).Return(activeUser(1), nil)
	requestRepo.On("FindByID", 99).Return(nil, nil)

	_, err := svc.ClaimRequest(99, 1)
	assert.True(t, errors.Is(err, errors.ErrRequestNotFound))
}

// TestReleaseStaleClaims 超时未配餐的认领应被释放并记录 CLAIM_TIMEOUT 标记
func TestReleaseStaleClaims(t *testing.T) {
	svc, requestRepo, _, flagRepo := newTestRequestService()

	stale := openRequest(10, 1)
	stale.Status = model.RequestStatusClaimed
	fulfillerID := 2
	stale.FulfillerID = &fulfillerID
	claimedAt := time.Now().Add(-1 * time.Hour)
	stale.ClaimedAt = &claimedAt

	requestRepo.On("FindClaimedBefore", mock.AnythingOfType("time.Time")).Return([]*model.Request{stale}, nil)
	requestRepo.On("Release", 10, 2).Return(true, nil)
	flagRepo.On("Create", mock.MatchedBy(func(f *model.Flag) bool {
		return f.UserID == 2 && f.Type == model.FlagTypeClaimTimeout && f.Status == model.FlagStatusPending
	})).Return(nil)

	err := svc.ReleaseStaleClaims()

	assert.NoError(t, err)
	requestRepo.AssertExpectations(t)
	flagRepo.AssertExpectations(t)
}

// TestReleaseStaleClaimsAlreadyProgressed 请求在释放前已推进时不记录标记
func TestReleaseStaleClaimsAlreadyProgressed(t *testing.T) {
	svc, requestRepo, _, flagRepo := newTestRequestService()

	stale := openRequest(10, 1)
	stale.Status = model.RequestStatusClaimed
	fulfillerID := 2
	stale.FulfillerID = &fulfillerID

	requestRepo.On("FindClaimedBefore", mock.AnythingOfType("time.Time")).Return([]*model.Request{stale}, nil)
	requestRepo.On("Release", 10, 2).Return(false, nil)

	err := svc.ReleaseStaleClaims()

	assert.NoError(t, err)
	flagRepo.AssertNotCalled(t, "Create", mock.Anything)
}

// TestExpireOverdueRequests 测试过期请求清理
func TestExpireOverdueRequests(t *testing.T) {
	svc, requestRepo, _, _ := newTestRequestService()

	requestRepo.On("ExpireOverdue", mock.AnythingOfType("time.Time")).Return(int64(3), nil)

	err := svc.ExpireOverdueRequests()
	assert.NoError(t, err)
	requestRepo.AssertExpectations(t)
}
