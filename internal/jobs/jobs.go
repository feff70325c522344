package jobs

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

type JobFunc func() error

type jobInfo struct {
	name string
	job  JobFunc
}

// JobManager runs named jobs on fixed intervals. A job never overlaps
// with itself.
type JobManager struct {
	scheduler *gocron.Scheduler
	logger    *slog.Logger

	mu   sync.Mutex
	jobs map[string]jobInfo
}

func NewJobManager(logger *slog.Logger) *JobManager {
	if logger == nil {
		logger = slog.Default()
	}
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()

	return &JobManager{
		scheduler: scheduler,
		logger:    logger,
		jobs:      make(map[string]jobInfo),
	}
}

// Every registers job to run every interval, starting immediately once the
// scheduler starts.
func (j *JobManager) Every(interval time.Duration, name string, job JobFunc) error {
	if interval <= 0 {
		return errors.New("interval must be positive")
	}
	if job == nil {
		return errors.New("job is required")
	}

	j.mu.Lock()
	j.jobs[name] = jobInfo{name: name, job: job}
	j.mu.Unlock()

	if _, err := j.scheduler.Every(interval).Tag(name).Do(func() {
		j.RunJob(name)
	}); err != nil {
		return fmt.Errorf("schedule job %q: %w", name, err)
	}
	return nil
}

func (j *JobManager) StartAsync() {
	j.scheduler.StartAsync()
}

func (j *JobManager) Stop() {
	j.scheduler.Stop()
}

// RunJob runs the named job once, logging its outcome and recovering
// from panics.
func (j *JobManager) RunJob(name string) {
	j.mu.Lock()
	job, ok := j.jobs[name]
	j.mu.Unlock()
	if !ok {
		return
	}

	start := time.Now()
	j.logger.Info("job started", "job", job.name)
	defer func() {
		if r := recover(); r != nil {
			j.logger.Error("job panicked", "job", job.name, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	if err := job.job(); err != nil {
		j.logger.Error("job failed", "job", job.name, "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return
	}
	j.logger.Info("job completed", "job", job.name, "duration_ms", time.Since(start).Milliseconds())
}
