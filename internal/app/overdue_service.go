package app

import (
	"context"
	"log"
	"time"

	"github.com/cimillas/library-lending/services/api/internal/clock"
)

type OverdueRepository interface {
	MarkOverdueLoans(ctx context.Context, now time.Time) (int, error)
	EnqueueOverdueReminders(ctx context.Context, subject string, now time.Time) (int, error)
}

const overdueSubject = "Loan overdue reminder"

// OverdueService is the daily sweep: flip borrowed loans past their due
// date to overdue, then enqueue a reminder for each overdue loan that has
// no live notification. Both steps are set-based statements, so a sweep
// racing another sweep is harmless.
type OverdueService struct {
	repo   OverdueRepository
	clock  clock.Clock
	logger *log.Logger
}

func NewOverdueService(repo OverdueRepository, clk clock.Clock, logger *log.Logger) *OverdueService {
	if logger == nil {
		logger = log.Default()
	}
	return &OverdueService{
		repo:   repo,
		clock:  clk,
		logger: logger,
	}
}

// Sweep runs one pass and returns (loans marked, reminders enqueued).
func (s *OverdueService) Sweep(ctx context.Context) (int, int, error) {
	now := s.clock.Now()

	marked, err := s.repo.MarkOverdueLoans(ctx, now)
	if err != nil {
		return 0, 0, err
	}
	if marked > 0 {
		s.logger.Printf("overdue sweep marked %d loan(s)", marked)
	}

	enqueued, err := s.repo.EnqueueOverdueReminders(ctx, overdueSubject, now)
	if err != nil {
		return marked, 0, err
	}
	if enqueued > 0 {
		s.logger.Printf("overdue sweep enqueued %d reminder(s)", enqueued)
	}

	return marked, enqueued, nil
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (s *OverdueService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, _, err := s.Sweep(ctx); err != nil {
				s.logger.Printf("overdue sweep failed: %v", err)
			}
		}
	}
}
