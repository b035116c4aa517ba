package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"parkspot/internal/repository"
)

type JobService struct {
	Repo       *repository.JobRepository
	PendingTTL time.Duration
	log        zerolog.Logger
}

func NewJobService(repo *repository.JobRepository, pendingTTL time.Duration, log zerolog.Logger) *JobService {
	return &JobService{Repo: repo, PendingTTL: pendingTTL, log: log}
}

// PurgeStalePendingBookings deletes pending bookings whose payment never
// arrived within the TTL, releasing their slots for other users. Lifecycle
// transitions driven by gate events are never performed here.
func (s *JobService) PurgeStalePendingBookings(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.PendingTTL)
	deleted, err := s.Repo.DeleteStalePendingBookings(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("cron job: failed to purge stale pending bookings: %w", err)
	}
	if deleted > 0 {
		s.log.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("purged stale pending bookings")
	}
	return nil
}
