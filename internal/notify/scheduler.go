package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler runs deferred notification sends inside the process. Each
// scheduled task gets its own timer goroutine; Close cancels whatever has not
// fired yet and waits for the goroutines to drain.
type Scheduler struct {
	logger *slog.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler builds a scheduler ready to accept tasks.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		logger: logger,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Schedule runs task once the given time arrives. Times in the past fire
// immediately. The task receives a context that is canceled when the
// scheduler closes; tasks that respect it stop instead of sending.
func (s *Scheduler) Schedule(at time.Time, task func(ctx context.Context)) {
	if s == nil || task == nil {
		return
	}
	delay := at.Sub(s.now())
	if delay < 0 {
		delay = 0
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			s.logger.Info("scheduled send dropped on shutdown",
				"at", at.UTC().Format(time.RFC3339))
		case <-timer.C:
			task(s.ctx)
		}
	}()
}

// Close cancels pending tasks and waits for every goroutine to finish.
func (s *Scheduler) Close() {
	if s == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
}
