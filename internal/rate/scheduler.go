package rate

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultJobTimeout = 30 * time.Second

// Scheduler runs a task on a cron schedule. Every run is an independent
// invocation bounded by its own timeout.
type Scheduler struct {
	name       string
	crontab    string
	jobTimeout time.Duration
	task       func(ctx context.Context) error
	// -----
	mu    sync.Mutex
	sched gocron.Scheduler
}

func (s *Scheduler) Start(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	job := func(jobCtx context.Context) {
		execID := uuid.NewString()
		log := logrus.WithFields(logrus.Fields{"job": s.name, "exec_id": execID})
		log.Info("Running scheduled job")

		runCtx, cancel := context.WithTimeout(jobCtx, s.jobTimeout)
		defer cancel()
		if runErr := s.task(runCtx); runErr != nil {
			log.WithError(runErr).Error("Scheduled job failed")
			return
		}
		log.Info("Scheduled job finished")
	}

	_, err = scheduler.NewJob(
		gocron.CronJob(s.crontab, withSeconds(s.crontab)),
		gocron.NewTask(job),
		gocron.WithName(s.name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return err
	}

	s.mu.Lock()
	s.sched = scheduler
	s.mu.Unlock()
	scheduler.Start()

	// Stop scheduler when the provided context is canceled.
	go func() {
		<-ctx.Done()
		if sdErr := s.Shutdown(); sdErr != nil {
			logrus.Errorf("Scheduler shutdown error: %v", sdErr)
		}
	}()
	return nil
}

func (s *Scheduler) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sched == nil {
		return nil
	}
	err := s.sched.Shutdown()
	s.sched = nil
	return err
}

func (s *Scheduler) running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sched != nil
}

// withSeconds accepts six-field crontabs whose first field is seconds.
func withSeconds(crontab string) bool {
	return len(strings.Fields(crontab)) == 6
}

func NewScheduler(name, crontab string, jobTimeout time.Duration, task func(ctx context.Context) error) *Scheduler {
	if jobTimeout <= 0 {
		jobTimeout = defaultJobTimeout
	}
	return &Scheduler{name: name, crontab: crontab, jobTimeout: jobTimeout, task: task}
}
