package mysql

import (
	"database/sql"
	"log"
	"mealswap-backend/internal/model"
)

// flagRepository 实现了 FlagRepository 接口
type flagRepository struct {
	db *sql.DB
}

// NewFlagRepository 创建一个新的 flagRepository 实例
func NewFlagRepository(db *sql.DB) *flagRepository {
	return &flagRepository{db}
}

// Create 创建一条审核标记
func (r *flagRepository) Create(flag *model.Flag) error {
	log.Printf("尝试创建审核标记：user_id=%d type=%s", flag.UserID, flag.Type)
	result, err := r.db.Exec(`
		INSERT INTO flags (user_id, type, reason, status, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		flag.UserID, flag.Type, flag.Reason, flag.Status, flag.CreatedAt)
	if err != nil {
		log.Printf("创建审核标记失败：%v", err)
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	flag.ID = int(id)
	return nil
}

// FindByID 通过ID查找标记
func (r *flagRepository) FindByID(id int) (*model.Flag, error) {
	var flag model.Flag
	err := r.db.QueryRow(`
		SELECT id, user_id, type, reason, status, resolution, resolved_at, created_at
		FROM flags WHERE id = ?`, id).Scan(
		&flag.ID, &flag.UserID, &flag.Type, &flag.Reason, &flag.Status,
		&flag.Resolution, &flag.ResolvedAt, &flag.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &flag, nil
}

// FindAll 获取标记列表（带用户摘要），按创建时间倒序
func (r *flagRepository) FindAll(status string) ([]*model.Flag, error) {
	query := `
		SELECT f.id, f.user_id, f.type, f.reason, f.status, f.resolution, f.resolved_at, f.created_at,
			   u.name, u.email, u.status
		FROM flags f
		LEFT JOIN users u ON f.user_id = u.id`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE f.status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY f.created_at DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		log.Printf("获取标记列表失败：%v", err)
		return nil, err
	}
	defer rows.Close()

	var flags []*model.Flag
	for rows.Next() {
		var flag model.Flag
		var userName, userEmail, userStatus sql.NullString
		err := rows.Scan(
			&flag.ID, &flag.UserID, &flag.Type, &flag.Reason, &flag.Status,
			&flag.Resolution, &flag.ResolvedAt, &flag.CreatedAt,
			&userName, &userEmail, &userStatus,
		)
		if err != nil {
			return nil, err
		}
		flag.User = &model.User{
			ID:     flag.UserID,
			Name:   userName.String,
			Email:  userEmail.String,
			Status: userStatus.String,
		}
		flags = append(flags, &flag)
	}
	return flags, rows.Err()
}

// FindByUser 获取某用户的全部标记，按创建时间倒序
func (r *flagRepository) FindByUser(userID int) ([]*model.Flag, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, type, reason, status, resolution, resolved_at, created_at
		FROM flags WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flags []*model.Flag
	for rows.Next() {
		var flag model.Flag
		err := rows.Scan(
			&flag.ID, &flag.UserID, &flag.Type, &flag.Reason, &flag.Status,
			&flag.Resolution, &flag.ResolvedAt, &flag.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		flags = append(flags, &flag)
	}
	return flags, rows.Err()
}

// Update 更新标记的处理结果
func (r *flagRepository) Update(flag *model.Flag) error {
	_, err := r.db.Exec(`
		UPDATE flags SET status = ?, resolution = ?, resolved_at = ? WHERE id = ?`,
		flag.Status, flag.Resolution, flag.ResolvedAt, flag.ID)
	return err
}

// CountPending 统计待处理的标记数
func (r *flagRepository) CountPending() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM flags WHERE status = ?`, model.FlagStatusPending).Scan(&count)
	return count, err
}
