package model

// SystemStats 管理员仪表盘统计数据
type SystemStats struct {
	TotalUsers        int            `json:"total_users"`
	TotalRequests     int            `json:"total_requests"`
	CompletedRequests int            `json:"completed_requests"`
	PendingFlags      int            `json:"pending_flags"`
	TodayRequests     int            `json:"today_requests"`
	TodayCompletions  int            `json:"today_completions"`
	WeeklyRequests    int            `json:"weekly_requests"`
	StatusCounts      map[string]int `json:"status_counts"`
	RecentRequests    []*Request     `json:"recent_requests"`
}
