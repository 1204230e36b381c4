package service

import (
	"mealswap-backend/internal/model"
	"mealswap-backend/internal/repository/interfaces"
	"time"
)

// StatsService 聚合管理员仪表盘统计数据
type StatsService struct {
	userRepo    interfaces.UserRepository
	requestRepo interfaces.RequestRepository
	flagRepo    interfaces.FlagRepository
}

func NewStatsService(userRepo interfaces.UserRepository, requestRepo interfaces.RequestRepository, flagRepo interfaces.FlagRepository) *StatsService {
	return &StatsService{
		userRepo:    userRepo,
		requestRepo: requestRepo,
		flagRepo:    flagRepo,
	}
}

func (s *StatsService) GetSystemStats() (*model.SystemStats, error) {
	stats := &model.SystemStats{}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekAgo := now.AddDate(0, 0, -7)

	userCount, err := s.userRepo.Count()
	if err != nil {
		return nil, err
	}
	stats.TotalUsers = userCount

	requestCount, err := s.requestRepo.Count()
	if err != nil {
		return nil, err
	}
	stats.TotalRequests = requestCount

	statusCounts, err := s.requestRepo.CountByStatus()
	if err != nil {
		return nil, err
	}
	stats.StatusCounts = statusCounts
	stats.CompletedRequests = statusCounts[model.RequestStatusCompleted]

	pendingFlags, err := s.flagRepo.CountPending()
	if err != nil {
		return nil, err
	}
	stats.PendingFlags = pendingFlags

	todayRequests, err := s.requestRepo.CountAllCreatedSince(today)
	if err != nil {
		return nil, err
	}
	stats.TodayRequests = todayRequests

	todayCompletions, err := s.requestRepo.CountWithStatusSince(model.RequestStatusCompleted, today)
	if err != nil {
		return nil, err
	}
	stats.TodayCompletions = todayCompletions

	weeklyRequests, err := s.requestRepo.CountAllCreatedSince(weekAgo)
	if err != nil {
		return nil, err
	}
	stats.WeeklyRequests = weeklyRequests

	recentRequests, err := s.requestRepo.FindRecent(10)
	if err != nil {
		return nil, err
	}
	stats.RecentRequests = recentRequests

	return stats, nil
}
