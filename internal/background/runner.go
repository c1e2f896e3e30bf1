package background

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"academy-backend/pkg/logger"
)

type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// Task is periodic maintenance work. Run reports how many items it corrected.
type Task struct {
	Name        string
	Interval    time.Duration
	Timeout     time.Duration
	RetryPolicy RetryPolicy
	Run         func(ctx context.Context) (int, error)
}

var (
	ErrRunnerNotStarted  = errors.New("runner not started")
	ErrTaskAlreadyExists = errors.New("task already registered")
)

// Runner drives each registered task on its own ticker. A task never overlaps
// with itself: ticks that arrive while it is running are dropped.
type Runner struct {
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	tasks   map[string]struct{}

	wg sync.WaitGroup
}

var (
	metricsOnce         sync.Once
	taskRunsTotal       *prometheus.CounterVec
	taskDurationSeconds *prometheus.HistogramVec
	taskLastSuccess     *prometheus.GaugeVec
	taskCorrectedTotal  *prometheus.CounterVec
)

func initMetrics() {
	metricsOnce.Do(func() {
		taskRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "academy",
			Subsystem: "background",
			Name:      "task_runs_total",
			Help:      "Background task attempts, by status",
		}, []string{"task", "status"})

		taskDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "academy",
			Subsystem: "background",
			Name:      "task_duration_seconds",
			Help:      "Duration of background task attempts",
			Buckets:   prometheus.DefBuckets,
		}, []string{"task"})

		taskLastSuccess = promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "academy",
			Subsystem: "background",
			Name:      "task_last_success_timestamp",
			Help:      "Unix timestamp of the last successful background task run",
		}, []string{"task"})

		taskCorrectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "academy",
			Subsystem: "background",
			Name:      "task_corrected_total",
			Help:      "Items corrected by background tasks",
		}, []string{"task"})
	})
}

func NewRunner() *Runner {
	initMetrics()
	return &Runner{tasks: make(map[string]struct{})}
}

func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.started = true
}

// Every registers task and starts its loop. The first run happens one
// interval after registration.
func (r *Runner) Every(task Task) error {
	if task.Name == "" {
		return errors.New("task name is required")
	}
	if task.Run == nil {
		return errors.New("task runner is required")
	}
	if task.Interval <= 0 {
		return fmt.Errorf("invalid interval %s for task %q", task.Interval, task.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return ErrRunnerNotStarted
	}
	if _, exists := r.tasks[task.Name]; exists {
		return ErrTaskAlreadyExists
	}
	r.tasks[task.Name] = struct{}{}

	r.wg.Add(1)
	go r.loop(r.ctx, task)
	return nil
}

func (r *Runner) loop(ctx context.Context, task Task) {
	defer r.wg.Done()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		r.run(ctx, task)

		select {
		case <-ticker.C:
			taskRunsTotal.WithLabelValues(task.Name, "skipped").Inc()
			logger.Debug("Skipping overlapping task run", map[string]interface{}{"task": task.Name})
		default:
		}
	}
}

func (r *Runner) run(ctx context.Context, task Task) {
	for attempt := 1; ; attempt++ {
		corrected, err := r.attempt(ctx, task, attempt)
		if err == nil {
			if corrected > 0 {
				taskCorrectedTotal.WithLabelValues(task.Name).Add(float64(corrected))
			}
			logger.Debug("Background task completed", map[string]interface{}{
				"task":      task.Name,
				"attempt":   attempt,
				"corrected": corrected,
			})
			return
		}

		if errors.Is(err, context.Canceled) {
			logger.Warn("Background task canceled", map[string]interface{}{"task": task.Name, "attempt": attempt})
			return
		}
		if attempt > task.RetryPolicy.MaxRetries {
			logger.Error(err, "Background task finished with error", map[string]interface{}{"task": task.Name, "attempt": attempt})
			return
		}

		if task.RetryPolicy.Backoff > 0 {
			timer := time.NewTimer(task.RetryPolicy.Backoff)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return
			}
		}
	}
}

func (r *Runner) attempt(parent context.Context, task Task, attempt int) (corrected int, runErr error) {
	start := time.Now()
	status := "success"

	ctx := parent
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, task.Timeout)
		defer cancel()
	}

	defer func() {
		taskDurationSeconds.WithLabelValues(task.Name).Observe(time.Since(start).Seconds())
		taskRunsTotal.WithLabelValues(task.Name, status).Inc()
		if status == "success" {
			taskLastSuccess.WithLabelValues(task.Name).Set(float64(time.Now().Unix()))
		}
	}()

	defer func() {
		if rec := recover(); rec != nil {
			corrected = 0
			runErr = fmt.Errorf("panic: %v", rec)
			status = "failure"
			logger.Error(runErr, "Background task panicked", map[string]interface{}{"task": task.Name, "attempt": attempt})
		}
	}()

	if err := ctx.Err(); err != nil {
		status = "canceled"
		return 0, err
	}

	corrected, runErr = task.Run(ctx)
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			status = "canceled"
		} else {
			status = "failure"
		}
		logger.Error(runErr, "Background task failed", map[string]interface{}{"task": task.Name, "attempt": attempt})
		return corrected, runErr
	}
	return corrected, nil
}

// Shutdown stops every task loop and waits for in-flight runs.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil
	}
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
