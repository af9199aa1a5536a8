package app

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/cimillas/library-lending/services/api/internal/clock"
)

type fakeOverdueRepo struct {
	marked    int
	enqueued  int
	markErr   error
	subjects  []string
	sweepsAt  []time.Time
	enqueueAt []time.Time
}

func (f *fakeOverdueRepo) MarkOverdueLoans(_ context.Context, now time.Time) (int, error) {
	if f.markErr != nil {
		return 0, f.markErr
	}
	f.sweepsAt = append(f.sweepsAt, now)
	return f.marked, nil
}

func (f *fakeOverdueRepo) EnqueueOverdueReminders(_ context.Context, subject string, now time.Time) (int, error) {
	f.subjects = append(f.subjects, subject)
	f.enqueueAt = append(f.enqueueAt, now)
	return f.enqueued, nil
}

func TestOverdueService_Sweep(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	quiet := log.New(io.Discard, "", 0)

	t.Run("marks then enqueues with a single timestamp", func(t *testing.T) {
		repo := &fakeOverdueRepo{marked: 3, enqueued: 2}
		svc := NewOverdueService(repo, clock.NewFixed(now), quiet)

		marked, enqueued, err := svc.Sweep(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if marked != 3 || enqueued != 2 {
			t.Fatalf("expected (3, 2), got (%d, %d)", marked, enqueued)
		}
		if len(repo.subjects) != 1 || repo.subjects[0] != overdueSubject {
			t.Fatalf("expected subject %q, got %v", overdueSubject, repo.subjects)
		}
		if !repo.sweepsAt[0].Equal(now) || !repo.enqueueAt[0].Equal(now) {
			t.Fatalf("expected both steps at %v, got mark=%v enqueue=%v", now, repo.sweepsAt[0], repo.enqueueAt[0])
		}
	})

	t.Run("marking failure skips the enqueue step", func(t *testing.T) {
		repo := &fakeOverdueRepo{markErr: errors.New("db down")}
		svc := NewOverdueService(repo, clock.NewFixed(now), quiet)

		_, _, err := svc.Sweep(context.Background())
		if err == nil {
			t.Fatalf("expected error")
		}
		if len(repo.subjects) != 0 {
			t.Fatalf("expected no enqueue after mark failure")
		}
	})
}

func TestOverdueService_Run_StopsOnCancel(t *testing.T) {
	t.Parallel()

	svc := NewOverdueService(&fakeOverdueRepo{}, clock.NewSystem(), log.New(io.Discard, "", 0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("sweep loop did not stop after cancel")
	}
}
