package request

import (
	"mealswap-backend/internal/dining"
	"mealswap-backend/internal/errors"
	"mealswap-backend/internal/model"
	"mealswap-backend/internal/service"
	"mealswap-backend/internal/util"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestHandler 处理用餐请求相关的HTTP请求
type RequestHandler struct {
	requestService *service.RequestService
}

// NewRequestHandler 创建一个新的 RequestHandler 实例
func NewRequestHandler(requestService *service.RequestService) *RequestHandler {
	return &RequestHandler{requestService}
}

// Create 创建新的用餐请求
func (h *RequestHandler) Create(c *gin.Context) {
	userID := c.GetInt("user_id")

	var requestData struct {
		Locations        []string  `json:"locations" binding:"required,min=1"`
		TimeWindowStart  time.Time `json:"time_window_start" binding:"required"`
		TimeWindowEnd    time.Time `json:"time_window_end" binding:"required,future_date"`
		DeliveryMethod   string    `json:"delivery_method" binding:"required,oneof=PICKUP DELIVERY"`
		DeliveryBuilding string    `json:"delivery_building"`
		DeliveryNotes    string    `json:"delivery_notes"`
		DietaryTags      []string  `json:"dietary_tags"`
		DietaryNotes     string    `json:"dietary_notes"`
	}

	if err := c.ShouldBindJSON(&requestData); err != nil {
		util.Logger.Warn("创建请求失败，无效的请求数据", zap.Error(err))
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的请求数据", err))
		return
	}

	req := &model.Request{
		Locations:        requestData.Locations,
		TimeWindowStart:  requestData.TimeWindowStart,
		TimeWindowEnd:    requestData.TimeWindowEnd,
		DeliveryMethod:   requestData.DeliveryMethod,
		DeliveryBuilding: requestData.DeliveryBuilding,
		DeliveryNotes:    requestData.DeliveryNotes,
		DietaryTags:      requestData.DietaryTags,
		DietaryNotes:     requestData.DietaryNotes,
	}

	if err := h.requestService.CreateRequest(userID, req); err != nil {
		errors.HandleError(c, err)
		return
	}

	errors.HandleSuccess(c, gin.H{
		"request": req,
	}, "请求创建成功")
}

// List 获取请求列表，支持 type=my|open|fulfilling 与 status 筛选
func (h *RequestHandler) List(c *gin.Context) {
	userID := c.GetInt("user_id")

	filters := model.RequestFilters{
		Type:   c.Query("type"),
		Status: c.Query("status"),
		UserID: userID,
	}

	requests, err := h.requestService.ListRequests(filters)
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	errors.HandleSuccess(c, gin.H{
		"requests": requests,
	}, "")
}

// Get 获取单个请求详情
func (h *RequestHandler) Get(c *gin.Context) {
	requestID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的请求ID", err))
		return
	}

	request, err := h.requestService.GetRequest(requestID)
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	errors.HandleSuccess(c, gin.H{
		"request": request,
	}, "")
}

// Claim 认领一个开放请求
func (h *RequestHandler) Claim(c *gin.Context) {
	h.transition(c, h.requestService.ClaimRequest, "请求认领成功")
}

// Fulfill 认领人标记配餐完成
func (h *RequestHandler) Fulfill(c *gin.Context) {
	userID := c.GetInt("user_id")

	requestID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的请求ID", err))
		return
	}

	var fulfillData struct {
		FulfilledLocation string  `json:"fulfilled_location" binding:"required"`
		GrubhubOrderID    *string `json:"grubhub_order_id"`
	}

	if err := c.ShouldBindJSON(&fulfillData); err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的请求数据", err))
		return
	}

	request, err := h.requestService.FulfillRequest(requestID, userID, fulfillData.FulfilledLocation, fulfillData.GrubhubOrderID)
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	errors.HandleSuccess(c, gin.H{
		"request": request,
	}, "配餐完成")
}

// Release 认领人释放请求
func (h *RequestHandler) Release(c *gin.Context) {
	h.transition(c, h.requestService.ReleaseRequest, "请求已释放")
}

// Complete 请求者确认收到餐食
func (h *RequestHandler) Complete(c *gin.Context) {
	h.transition(c, h.requestService.CompleteRequest, "请求已完成")
}

// Cancel 请求者取消开放请求
func (h *RequestHandler) Cancel(c *gin.Context) {
	h.transition(c, h.requestService.CancelRequest, "请求已取消")
}

// GetLocations 返回所有可用的食堂地点
func (h *RequestHandler) GetLocations(c *gin.Context) {
	errors.HandleSuccess(c, gin.H{
		"locations": dining.Locations,
	}, "")
}

// transition 处理无请求体的状态转换操作
func (h *RequestHandler) transition(c *gin.Context, fn func(requestID, actingUserID int) (*model.Request, error), message string) {
	userID := c.GetInt("user_id")

	requestID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrValidation, "无效的请求ID", err))
		return
	}

	request, err := fn(requestID, userID)
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	errors.HandleSuccess(c, gin.H{
		"request": request,
	}, message)
}
