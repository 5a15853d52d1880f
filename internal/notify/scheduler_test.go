package notify

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestSchedulerFiresPastTimesImmediately(t *testing.T) {
	defer goleak.VerifyNone(t)

	scheduler := NewScheduler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	fired := make(chan struct{})

	scheduler.Schedule(time.Now().Add(-time.Hour), func(ctx context.Context) {
		close(fired)
	})

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not fire for a past time")
	}
	scheduler.Close()
}

func TestSchedulerCloseDropsPendingTasks(t *testing.T) {
	defer goleak.VerifyNone(t)

	scheduler := NewScheduler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	fired := make(chan struct{}, 1)

	scheduler.Schedule(time.Now().Add(time.Hour), func(ctx context.Context) {
		fired <- struct{}{}
	})
	scheduler.Close()

	select {
	case <-fired:
		t.Fatal("pending task fired after close")
	default:
	}
}

func TestSchedulerTaskContextCanceledOnClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	scheduler := NewScheduler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	observed := make(chan error, 1)

	scheduler.Schedule(time.Now(), func(ctx context.Context) {
		<-ctx.Done()
		observed <- ctx.Err()
	})

	time.Sleep(50 * time.Millisecond)
	scheduler.Close()

	select {
	case err := <-observed:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	default:
		t.Fatal("task never observed cancellation")
	}
}
