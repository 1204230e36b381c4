package service

import (
	"mealswap-backend/internal/errors"
	"mealswap-backend/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestAdminService() (*AdminService, *MockUserRepository, *MockRequestRepository, *MockFlagRepository) {
	userRepo := new(MockUserRepository)
	requestRepo := new(MockRequestRepository)
	flagRepo := new(MockFlagRepository)
	return NewAdminService(userRepo, requestRepo, flagRepo), userRepo, requestRepo, flagRepo
}

// TestSuspendUser 测试停用用户
func TestSuspendUser(t *testing.T) {
	svc, userRepo, _, _ := newTestAdminService()

	userRepo.On("FindByID", 1).Return(activeUser(1), nil)
	userRepo.On("Update", mock.AnythingOfType("*model.User")).Return(nil)

	user, err := svc.SuspendUser(1, 3)

	assert.NoError(t, err)
	assert.Equal(t, model.UserStatusSuspended, user.Status)
	assert.NotNil(t, user.SuspendedUntil)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 3), *user.SuspendedUntil, time.Minute)
}

// TestSuspendUserDefaultDays 未指定天数时默认停用7天
func TestSuspendUserDefaultDays(t *testing.T) {
	svc, userRepo, _, _ := newTestAdminService()

	userRepo.On("FindByID", 1).Return(activeUser(1), nil)
	userRepo.On("Update", mock.AnythingOfType("*model.User")).Return(nil)

	user, err := svc.SuspendUser(1, 0)

	assert.NoError(t, err)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 7), *user.SuspendedUntil, time.Minute)
}

// TestBanUser 测试封禁用户
func TestBanUser(t *testing.T) {
	svc, userRepo, _, _ := newTestAdminService()

	userRepo.On("FindByID", 1).Return(activeUser(1), nil)
	userRepo.On("Update", mock.AnythingOfType("*model.User")).Return(nil)

	user, err := svc.BanUser(1)

	assert.NoError(t, err)
	assert.Equal(t, model.UserStatusBanned, user.Status)
	assert.Nil(t, user.SuspendedUntil)
}

// TestUnbanUser 解除封禁后用户恢复正常
func TestUnbanUser(t *testing.T) {
	svc, userRepo, _, _ := newTestAdminService()

	banned := activeUser(1)
	banned.Status = model.UserStatusBanned

	userRepo.On("FindByID", 1).Return(banned, nil)
	userRepo.On("Update", mock.AnythingOfType("*model.User")).Return(nil)

	user, err := svc.UnbanUser(1)

	assert.NoError(t, err)
	assert.Equal(t, model.UserStatusActive, user.Status)
}

// TestSetUserRole 测试设置用户角色
func TestSetUserRole(t *testing.T) {
	svc, userRepo, _, _ := newTestAdminService()

	userRepo.On("FindByID", 1).Return(activeUser(1), nil)
	userRepo.On("Update", mock.AnythingOfType("*model.User")).Return(nil)

	user, err := svc.SetUserRole(1, model.RoleAdmin)

	assert.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, user.Role)
}

func TestSetUserRoleInvalid(t *testing.T) {
	svc, userRepo, _, _ := newTestAdminService()

	_, err := svc.SetUserRole(1, "SUPERADMIN")
	assert.True(t, errors.Is(err, errors.ErrValidation))
	userRepo.AssertNotCalled(t, "Update", mock.Anything)
}

// TestCreateFlag 测试手动创建审核标记
func TestCreateFlag(t *testing.T) {
	svc, userRepo, _, flagRepo := newTestAdminService()

	userRepo.On("FindByID", 1).Return(activeUser(1), nil)
	flagRepo.On("Create", mock.MatchedBy(func(f *model.Flag) bool {
		return f.UserID == 1 && f.Type == model.FlagTypeUnusualPattern && f.Status == model.FlagStatusPending
	})).Return(nil)

	flag, err := svc.CreateFlag(1, model.FlagTypeUnusualPattern, "多次在深夜集中创建请求")

	assert.NoError(t, err)
	assert.Equal(t, model.FlagStatusPending, flag.Status)
	flagRepo.AssertExpectations(t)
}

func TestCreateFlagInvalidType(t *testing.T) {
	svc, _, _, flagRepo := newTestAdminService()

	_, err := svc.CreateFlag(1, "NOT_A_TYPE", "理由")
	assert.True(t, errors.Is(err, errors.ErrValidation))
	flagRepo.AssertNotCalled(t, "Create", mock.Anything)
}

// TestResolveFlag 测试处理审核标记
func TestResolveFlag(t *testing.T) {
	svc, _, _, flagRepo := newTestAdminService()

	flag := &model.Flag{
		ID:     5,
		UserID: 1,
		Type:   model.FlagTypeRapidRequests,
		Status: model.FlagStatusPending,
	}

	flagRepo.On("FindByID", 5).Return(flag, nil)
	flagRepo.On("Update", mock.AnythingOfType("*model.Flag")).Return(nil)

	resolved, err := svc.ResolveFlag(5, model.FlagStatusDismissed, "误报")

	assert.NoError(t, err)
	assert.Equal(t, model.FlagStatusDismissed, resolved.Status)
	assert.NotNil(t, resolved.Resolution)
	assert.Equal(t, "误报", *resolved.Resolution)
	assert.NotNil(t, resolved.ResolvedAt)
}

func TestResolveFlagInvalidStatus(t *testing.T) {
	svc, _, _, flagRepo := newTestAdminService()

	_, err := svc.ResolveFlag(5, model.FlagStatusPending, "")
	assert.True(t, errors.Is(err, errors.ErrValidation))
	flagRepo.AssertNotCalled(t, "Update", mock.Anything)
}

func TestResolveFlagNotFound(t *testing.T) {
	svc, _, _, flagRepo := newTestAdminService()

	flagRepo.On("FindByID", 99).Return(nil, nil)

	_, err := svc.ResolveFlag(99, model.FlagStatusActioned, "已停用账户")
	assert.True(t, errors.Is(err, errors.ErrFlagNotFound))
}
