package mysql

import (
	"database/sql"
	"encoding/json"
	"mealswap-backend/internal/model"
	"mealswap-backend/internal/util"
	"time"

	"go.uber.org/zap"
)

// requestColumns 请求表的查询列，带请求者/配送者姓名
const requestColumns = `
	r.id, r.requester_id, r.fulfiller_id, r.status, r.locations,
	r.time_window_start, r.time_window_end, r.delivery_method,
	r.delivery_building, r.delivery_notes, r.dietary_tags, r.dietary_notes,
	r.pickup_alias, r.fulfilled_location, r.grubhub_order_id,
	r.claimed_at, r.fulfilled_at, r.completed_at, r.expires_at,
	r.created_at, r.updated_at,
	req.name AS requester_name, ful.name AS fulfiller_name`

const requestJoins = `
	FROM requests r
	LEFT JOIN users req ON r.requester_id = req.id
	LEFT JOIN users ful ON r.fulfiller_id = ful.id`

// requestRepository 实现了 RequestRepository 接口
type requestRepository struct {
	db *sql.DB
}

// NewRequestRepository 创建一个新的 requestRepository 实例
func NewRequestRepository(db *sql.DB) *requestRepository {
	return &requestRepository{db}
}

// Create 创建一个新的用餐请求
func (r *requestRepository) Create(request *model.Request) error {
	util.Logger.Info("开始创建用餐请求", zap.Int("requester_id", request.RequesterID))

	locations, err := json.Marshal(request.Locations)
	if err != nil {
		return err
	}
	dietaryTags, err := json.Marshal(request.DietaryTags)
	if err != nil {
		return err
	}

	result, err := r.db.Exec(`
		INSERT INTO requests (
			requester_id, status, locations, time_window_start, time_window_end,
			delivery_method, delivery_building, delivery_notes, dietary_tags, dietary_notes,
			pickup_alias, expires_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		request.RequesterID, request.Status, string(locations),
		request.TimeWindowStart, request.TimeWindowEnd,
		request.DeliveryMethod, request.DeliveryBuilding, request.DeliveryNotes,
		string(dietaryTags), request.DietaryNotes,
		request.PickupAlias, request.ExpiresAt, request.CreatedAt, request.UpdatedAt)
	if err != nil {
		util.Logger.Error("插入请求失败", zap.Error(err))
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		util.Logger.Error("获取请求ID失败", zap.Error(err))
		return err
	}
	request.ID = int(id)

	util.Logger.Info("请求创建成功", zap.Int("request_id", request.ID))
	return nil
}

// FindByID 通过ID获取请求
func (r *requestRepository) FindByID(id int) (*model.Request, error) {
	row := r.db.QueryRow(`SELECT `+requestColumns+requestJoins+` WHERE r.id = ?`, id)
	request, err := scanRequest(row)
	if err != nil {
		if err == sql.ErrNoRows {
			util.Logger.Info("请求不存在", zap.Int("request_id", id))
			return nil, nil
		}
		util.Logger.Error("获取请求失败", zap.Error(err), zap.Int("request_id", id))
		return nil, err
	}
	return request, nil
}

// List 按筛选条件获取请求列表，按创建时间倒序
func (r *requestRepository) List(filters model.RequestFilters) ([]*model.Request, error) {
	query := `SELECT ` + requestColumns + requestJoins + ` WHERE 1=1`
	args := []interface{}{}

	switch filters.Type {
	case "my":
		query += ` AND r.requester_id = ?`
		args = append(args, filters.UserID)
	case "open":
		// 开放列表不包含用户自己发布的请求
		query += ` AND r.status = ? AND r.requester_id != ?`
		args = append(args, model.RequestStatusOpen, filters.UserID)
	case "fulfilling":
		query += ` AND r.fulfiller_id = ?`
		args = append(args, filters.UserID)
	}

	if filters.Status != "" {
		query += ` AND r.status = ?`
		args = append(args, filters.Status)
	}

	query += ` ORDER BY r.created_at DESC`

	return r.queryRequests(query, args...)
}

// FindByRequester 获取用户发布的最近请求
func (r *requestRepository) FindByRequester(userID, limit int) ([]*model.Request, error) {
	query := `SELECT ` + requestColumns + requestJoins +
		` WHERE r.requester_id = ? ORDER BY r.created_at DESC LIMIT ?`
	return r.queryRequests(query, userID, limit)
}

// FindByFulfiller 获取用户认领过的最近请求
func (r *requestRepository) FindByFulfiller(userID, limit int) ([]*model.Request, error) {
	query := `SELECT ` + requestColumns + requestJoins +
		` WHERE r.fulfiller_id = ? ORDER BY r.claimed_at DESC LIMIT ?`
	return r.queryRequests(query, userID, limit)
}

// CountCreatedSince 统计用户自指定时间起创建的请求数（不含已取消）
func (r *requestRepository) CountCreatedSince(userID int, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM requests
		WHERE requester_id = ? AND created_at >= ? AND status != ?`,
		userID, since, model.RequestStatusCancelled).Scan(&count)
	return count, err
}

// CountClaimedSince 统计用户自指定时间起认领的请求数
func (r *requestRepository) CountClaimedSince(userID int, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM requests
		WHERE fulfiller_id = ? AND claimed_at >= ?`,
		userID, since).Scan(&count)
	return count, err
}

// Claim 原子认领：仅当请求仍为 OPEN 时生效
func (r *requestRepository) Claim(requestID, fulfillerID int, claimedAt time.Time) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE requests
		SET status = ?, fulfiller_id = ?, claimed_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		model.RequestStatusClaimed, fulfillerID, claimedAt, time.Now(),
		requestID, model.RequestStatusOpen)
	if err != nil {
		util.Logger.Error("认领请求失败", zap.Error(err), zap.Int("request_id", requestID))
		return false, err
	}
	return rowsAffected(result)
}

// Fulfill 原子完成配送：仅当请求为 CLAIMED 且认领人匹配时生效
func (r *requestRepository) Fulfill(requestID, fulfillerID int, location string, grubhubOrderID *string, fulfilledAt time.Time) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE requests
		SET status = ?, fulfilled_location = ?, grubhub_order_id = ?, fulfilled_at = ?, updated_at = ?
		WHERE id = ? AND status = ? AND fulfiller_id = ?`,
		model.RequestStatusFulfilled, location, grubhubOrderID, fulfilledAt, time.Now(),
		requestID, model.RequestStatusClaimed, fulfillerID)
	if err != nil {
		util.Logger.Error("标记配送完成失败", zap.Error(err), zap.Int("request_id", requestID))
		return false, err
	}
	return rowsAffected(result)
}

// Release 原子释放：请求回到 OPEN，清除认领人和认领时间
func (r *requestRepository) Release(requestID, fulfillerID int) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE requests
		SET status = ?, fulfiller_id = NULL, claimed_at = NULL, updated_at = ?
		WHERE id = ? AND status = ? AND fulfiller_id = ?`,
		model.RequestStatusOpen, time.Now(),
		requestID, model.RequestStatusClaimed, fulfillerID)
	if err != nil {
		util.Logger.Error("释放请求失败", zap.Error(err), zap.Int("request_id", requestID))
		return false, err
	}
	return rowsAffected(result)
}

// Complete 原子确认完成：仅当请求为 FULFILLED 时生效
func (r *requestRepository) Complete(requestID int, completedAt time.Time) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE requests
		SET status = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		model.RequestStatusCompleted, completedAt, time.Now(),
		requestID, model.RequestStatusFulfilled)
	if err != nil {
		util.Logger.Error("确认完成失败", zap.Error(err), zap.Int("request_id", requestID))
		return false, err
	}
	return rowsAffected(result)
}

// Cancel 原子取消：仅当请求为 OPEN 时生效
func (r *requestRepository) Cancel(requestID int) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE requests
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		model.RequestStatusCancelled, time.Now(),
		requestID, model.RequestStatusOpen)
	if err != nil {
		util.Logger.Error("取消请求失败", zap.Error(err), zap.Int("request_id", requestID))
		return false, err
	}
	return rowsAffected(result)
}

// ExpireOverdue 将过期的 OPEN 请求批量置为 EXPIRED
func (r *requestRepository) ExpireOverdue(now time.Time) (int64, error) {
	result, err := r.db.Exec(`
		UPDATE requests
		SET status = ?, updated_at = ?
		WHERE status = ? AND expires_at < ?`,
		model.RequestStatusExpired, now, model.RequestStatusOpen, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// FindClaimedBefore 获取认领时间早于 cutoff 且仍处于 CLAIMED 的请求
func (r *requestRepository) FindClaimedBefore(cutoff time.Time) ([]*model.Request, error) {
	query := `SELECT ` + requestColumns + requestJoins +
		` WHERE r.status = ? AND r.claimed_at < ?`
	return r.queryRequests(query, model.RequestStatusClaimed, cutoff)
}

// Count 统计请求总数
func (r *requestRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM requests`).Scan(&count)
	return count, err
}

// CountByStatus 按状态统计请求数
func (r *requestRepository) CountByStatus() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM requests GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// CountWithStatusSince 统计指定状态下自某时间起完成的请求数
func (r *requestRepository) CountWithStatusSince(status string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM requests
		WHERE status = ? AND completed_at >= ?`,
		status, since).Scan(&count)
	return count, err
}

// CountAllCreatedSince 统计自某时间起创建的请求总数
func (r *requestRepository) CountAllCreatedSince(since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM requests WHERE created_at >= ?`, since).Scan(&count)
	return count, err
}

// FindRecent 获取最近创建的请求
func (r *requestRepository) FindRecent(limit int) ([]*model.Request, error) {
	query := `SELECT ` + requestColumns + requestJoins + ` ORDER BY r.created_at DESC LIMIT ?`
	return r.queryRequests(query, limit)
}

func (r *requestRepository) queryRequests(query string, args ...interface{}) ([]*model.Request, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		util.Logger.Error("查询请求列表失败", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var requests []*model.Request
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

// scanner 兼容 *sql.Row 和 *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(s scanner) (*model.Request, error) {
	var request model.Request
	var locations, dietaryTags string
	var deliveryBuilding, deliveryNotes, dietaryNotes sql.NullString
	var requesterName, fulfillerName sql.NullString

	err := s.Scan(
		&request.ID, &request.RequesterID, &request.FulfillerID, &request.Status, &locations,
		&request.TimeWindowStart, &request.TimeWindowEnd, &request.DeliveryMethod,
		&deliveryBuilding, &deliveryNotes, &dietaryTags, &dietaryNotes,
		&request.PickupAlias, &request.FulfilledLocation, &request.GrubhubOrderID,
		&request.ClaimedAt, &request.FulfilledAt, &request.CompletedAt, &request.ExpiresAt,
		&request.CreatedAt, &request.UpdatedAt,
		&requesterName, &fulfillerName,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(locations), &request.Locations); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(dietaryTags), &request.DietaryTags); err != nil {
		return nil, err
	}
	request.DeliveryBuilding = deliveryBuilding.String
	request.DeliveryNotes = deliveryNotes.String
	request.DietaryNotes = dietaryNotes.String

	// 填充请求者/配送者摘要信息
	request.Requester = &model.User{ID: request.RequesterID, Name: requesterName.String}
	if request.FulfillerID != nil {
		request.Fulfiller = &model.User{ID: *request.FulfillerID, Name: fulfillerName.String}
	}

	return &request, nil
}

func rowsAffected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
