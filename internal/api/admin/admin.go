package admin

import (
	"mealswap-backend/internal/errors"
	"mealswap-backend/internal/service"
	"mealswap-backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler 处理管理后台相关的HTTP请求
type AdminHandler struct {
	adminService *service.AdminService
	statsService *service.StatsService
}

// NewAdminHandler 创建一个新的 AdminHandler 实例
func NewAdminHandler(adminService *service.AdminService, statsService *service.StatsService) *AdminHandler {
	return &AdminHandler{adminService, statsService}
}

// GetUsers 获取用户列表，支持 status 筛选
func (h *AdminHandler) GetUsers(c *gin.Context) {
	users, err := h.adminService.GetUsers(c.Query("status"))
	if err != nil {
		util.Logger.Error("获取用户列表失败", zap.Error(err))
		errors.HandleError(c, errors.Wrap(errors.ErrInternal, "获取用户列表失败", err))
		return
	}

	errors.HandleSuccess(c, gin.H{
		"users": users,
	}, "")
}

// GetUserDetail 获取用户详情，包含近期请求、认领记录和标记
func (h *AdminHandler) GetUserDetail(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的用户ID", err))
		return
	}

	detail, err := h.adminService.GetUserDetail(userID)
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	errors.HandleSuccess(c, detail, "")
}

// UpdateUser 按动作更新用户状态或角色
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的用户ID", err))
		return
	}

	var updateData struct {
		Action string `json:"action" binding:"required,oneof=suspend unsuspend ban unban setRole"`
		Days   int    `json:"days"`
		Role   string `json:"role"`
	}

	if err := c.ShouldBindJSON(&updateData); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的请求数据", err))
		return
	}

	var user interface{}
	switch updateData.Action {
	case "suspend":
		user, err = h.adminService.SuspendUser(userID, updateData.Days)
	case "unsuspend":
		user, err = h.adminService.UnsuspendUser(userID)
	case "ban":
		user, err = h.adminService.BanUser(userID)
	case "unban":
		user, err = h.adminService.UnbanUser(userID)
	case "setRole":
		user, err = h.adminService.SetUserRole(userID, updateData.Role)
	}

	if err != nil {
		errors.HandleError(c, err)
		return
	}

	errors.HandleSuccess(c, gin.H{
		"user": user,
	}, "用户更新成功")
}

// GetFlags 获取审核标记列表，支持 status 筛选
func (h *AdminHandler) GetFlags(c *gin.Context) {
	flags, err := h.adminService.GetFlags(c.Query("status"))
	if err != nil {
		util.Logger.Error("获取标记列表失败", zap.Error(err))
		errors.HandleError(c, errors.Wrap(errors.ErrInternal, "获取标记列表失败", err))
		return
	}

	errors.HandleSuccess(c, gin.H{
		"flags": flags,
	}, "")
}

// CreateFlag 手动创建审核标记
func (h *AdminHandler) CreateFlag(c *gin.Context) {
	var flagData struct {
		UserID int    `json:"user_id" binding:"required"`
		Type   string `json:"type" binding:"required"`
		Reason string `json:"reason" binding:"required"`
	}

	if err := c.ShouldBindJSON(&flagData); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的请求数据", err))
		return
	}

	flag, err := h.adminService.CreateFlag(flagData.UserID, flagData.Type, flagData.Reason)
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	errors.HandleSuccess(c, gin.H{
		"flag": flag,
	}, "标记创建成功")
}

// ResolveFlag 处理审核标记
func (h *AdminHandler) ResolveFlag(c *gin.Context) {
	flagID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的标记ID", err))
		return
	}

	var resolveData struct {
		Status     string `json:"status" binding:"required,oneof=DISMISSED ACTIONED"`
		Resolution string `json:"resolution"`
	}

	if err := c.ShouldBindJSON(&resolveData); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的请求数据", err))
		return
	}

	flag, err := h.adminService.ResolveFlag(flagID, resolveData.Status, resolveData.Resolution)
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	errors.HandleSuccess(c, gin.H{
		"flag": flag,
	}, "标记处理成功")
}

// GetStats 获取系统统计数据
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.statsService.GetSystemStats()
	if err != nil {
		util.Logger.Error("获取统计数据失败", zap.Error(err))
		errors.HandleError(c, errors.Wrap(errors.ErrInternal, "获取统计数据失败", err))
		return
	}

	errors.HandleSuccess(c, stats, "")
}
