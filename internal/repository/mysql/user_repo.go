package mysql

import (
	"database/sql"
	"log"
	"mealswap-backend/internal/model"
	"time"
)

// userRepository 实现了 UserRepository 接口
type userRepository struct {
	db *sql.DB
}

// NewUserRepository 创建一个新的 userRepository 实例
func NewUserRepository(db *sql.DB) *userRepository {
	return &userRepository{db}
}

// Create 创建一个新用户
func (r *userRepository) Create(user *model.User) error {
	log.Printf("尝试创建新用户：%s", user.Email)
	query := `INSERT INTO users (email, name, password_hash, avatar_url, role, status, is_verified)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.Exec(query, user.Email, user.Name, user.PasswordHash, user.AvatarURL,
		model.RoleUser, model.UserStatusActive, user.IsVerified)
	if err != nil {
		log.Printf("创建用户失败：%v", err)
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		log.Printf("获取新用户ID失败：%v", err)
		return err
	}
	user.ID = int(id)
	user.Role = model.RoleUser // 设置默认角色
	user.Status = model.UserStatusActive
	log.Printf("用户创建成功：ID=%d", user.ID)
	return nil
}

// FindByID 通过ID查找用户
func (r *userRepository) FindByID(id int) (*model.User, error) {
	query := `SELECT id, email, name, password_hash, avatar_url, role, status, suspended_until, is_verified, created_at, updated_at
              FROM users WHERE id = ?`
	var user model.User
	err := r.db.QueryRow(query, id).Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.AvatarURL,
		&user.Role, &user.Status, &user.SuspendedUntil, &user.IsVerified, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		log.Printf("查找用户失败：%v", err)
		return nil, err
	}
	return &user, nil
}

// FindByEmail 通过邮箱查找用户
func (r *userRepository) FindByEmail(email string) (*model.User, error) {
	query := `SELECT id, email, name, password_hash, avatar_url, role, status, suspended_until, is_verified, created_at, updated_at
              FROM users WHERE email = ?`
	var user model.User
	err := r.db.QueryRow(query, email).Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.AvatarURL,
		&user.Role, &user.Status, &user.SuspendedUntil, &user.IsVerified, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		log.Printf("查找用户失败：%v", err)
		return nil, err
	}
	return &user, nil
}

// Update 更新用户信息
func (r *userRepository) Update(user *model.User) error {
	_, err := r.db.Exec(`
		UPDATE users
		SET name = ?, avatar_url = ?, role = ?, status = ?, suspended_until = ?, is_verified = ?, password_hash = ?, updated_at = ?
		WHERE id = ?`,
		user.Name, user.AvatarURL, user.Role, user.Status, user.SuspendedUntil,
		user.IsVerified, user.PasswordHash, time.Now(), user.ID)
	return err
}

// Count 统计用户总数
func (r *userRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// FindAllWithCounts 获取带统计数据的用户列表（管理员用）
func (r *userRepository) FindAllWithCounts(status string) ([]*model.UserWithCounts, error) {
	query := `
		SELECT u.id, u.email, u.name, u.avatar_url, u.role, u.status, u.suspended_until, u.is_verified,
			   u.created_at, u.updated_at,
			   (SELECT COUNT(*) FROM requests r WHERE r.requester_id = u.id) AS request_count,
			   (SELECT COUNT(*) FROM requests r WHERE r.fulfiller_id = u.id) AS fulfillment_count,
			   (SELECT COUNT(*) FROM flags f WHERE f.user_id = u.id) AS flag_count
		FROM users u`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE u.status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY u.created_at DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		log.Printf("获取用户列表失败：%v", err)
		return nil, err
	}
	defer rows.Close()

	var users []*model.UserWithCounts
	for rows.Next() {
		var u model.UserWithCounts
		err := rows.Scan(
			&u.ID, &u.Email, &u.Name, &u.AvatarURL, &u.Role, &u.Status, &u.SuspendedUntil,
			&u.IsVerified, &u.CreatedAt, &u.UpdatedAt,
			&u.RequestCount, &u.FulfillmentCount, &u.FlagCount,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}
