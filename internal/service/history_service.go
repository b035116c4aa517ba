package service

import (
	"context"

	"parkspot/internal/entities"
	"parkspot/internal/repository"
)

type HistoryService struct {
	Repo *repository.HistoryRepository
}

func NewHistoryService(repo *repository.HistoryRepository) *HistoryService {
	return &HistoryService{Repo: repo}
}

func (s *HistoryService) LatestBooking(ctx context.Context, userID int) (*entities.HistoryEntry, error) {
	return s.Repo.LatestBookingForUser(ctx, userID)
}

func (s *HistoryService) History(ctx context.Context, userID int) ([]entities.HistoryEntry, error) {
	return s.Repo.HistoryForUser(ctx, userID)
}
