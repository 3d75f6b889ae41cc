package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// CRON EXPRESSIONS
// ══════════════════════════════════════════════════════════════════════════════

// CronExpression is a parsed 5-field cron expression
// (minute hour day-of-month month day-of-week).
//
//	"*/15 * * * *"  every 15 minutes
//	"0 21 * * *"    every evening at 21:00
//	"0 0 * * 1"     Monday midnight
//
// Each field is stored as a bitset, so matching a time is five bit tests.
type CronExpression struct {
	raw     string
	minute  uint64
	hour    uint64
	day     uint64
	month   uint64
	weekday uint64
}

// Common cron expression presets.
const (
	EveryMinute      = "* * * * *"
	Every5Minutes    = "*/5 * * * *"
	Every15Minutes   = "*/15 * * * *"
	EveryHour        = "0 * * * *"
	EveryDayMidnight = "0 0 * * *"
	EveryDay21PM     = "0 21 * * *"
	EveryMonday      = "0 0 * * 1"
)

// ParseCronExpression parses a 5-field cron expression. Fields accept
// wildcards, steps, ranges, and comma lists ("1,5-9,*/10").
func ParseCronExpression(expr string) (*CronExpression, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("invalid cron expression: expected 5 fields, got %d", len(fields))
	}

	ce := &CronExpression{raw: expr}
	specs := []struct {
		name     string
		dst      *uint64
		min, max int
	}{
		{"minute", &ce.minute, 0, 59},
		{"hour", &ce.hour, 0, 23},
		{"day", &ce.day, 1, 31},
		{"month", &ce.month, 1, 12},
		{"weekday", &ce.weekday, 0, 6},
	}

	for i, spec := range specs {
		set, err := parseCronField(fields[i], spec.min, spec.max)
		if err != nil {
			return nil, fmt.Errorf("invalid %s field: %w", spec.name, err)
		}
		*spec.dst = set
	}

	return ce, nil
}

// MustParseCronExpression parses a cron expression or panics.
// Use only for compile-time constants.
func MustParseCronExpression(expr string) *CronExpression {
	ce, err := ParseCronExpression(expr)
	if err != nil {
		panic(fmt.Sprintf("invalid cron expression %q: %v", expr, err))
	}
	return ce
}

// parseCronField parses one field into a bitset. A field is a comma list of
// terms, each of which is "*", "n", "a-b", optionally with a "/step" suffix.
func parseCronField(field string, min, max int) (uint64, error) {
	var set uint64

	for _, term := range strings.Split(field, ",") {
		term = strings.TrimSpace(term)

		step := 1
		if base, stepStr, ok := strings.Cut(term, "/"); ok {
			s, err := strconv.Atoi(stepStr)
			if err != nil || s <= 0 {
				return 0, fmt.Errorf("invalid step %q", stepStr)
			}
			step = s
			term = base
		}

		start, end := min, max
		switch {
		case term == "*":
			// full range
		case strings.Contains(term, "-"):
			lo, hi, _ := strings.Cut(term, "-")
			var err error
			if start, err = strconv.Atoi(lo); err != nil {
				return 0, fmt.Errorf("invalid range start %q", lo)
			}
			if end, err = strconv.Atoi(hi); err != nil {
				return 0, fmt.Errorf("invalid range end %q", hi)
			}
		default:
			v, err := strconv.Atoi(term)
			if err != nil {
				return 0, fmt.Errorf("invalid value %q", term)
			}
			if v < min || v > max {
				return 0, fmt.Errorf("value out of range [%d-%d]: %d", min, max, v)
			}
			start, end = v, v
			if step > 1 {
				// "n/step" means every step from n to the field maximum
				end = max
			}
		}

		if start < min || end > max || start > end {
			return 0, fmt.Errorf("range out of bounds [%d-%d]: %s", min, max, term)
		}
		for v := start; v <= end; v += step {
			set |= 1 << uint(v)
		}
	}

	if set == 0 {
		return 0, fmt.Errorf("empty field %q", field)
	}
	return set, nil
}

// String returns the original cron expression.
func (ce *CronExpression) String() string {
	return ce.raw
}

// Next returns the first time strictly after the given one that matches the
// expression, in the same location. Returns the zero time if no match is
// found within a year.
func (ce *CronExpression) Next(after time.Time) time.Time {
	t := after.Truncate(time.Minute).Add(time.Minute)
	limit := t.AddDate(1, 0, 1)

	for t.Before(limit) {
		if !ce.dateMatches(t) {
			// Skip straight to the next midnight.
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
			continue
		}
		if ce.hour&(1<<uint(t.Hour())) == 0 {
			// time.Date normalizes hour 24 into the next day.
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, t.Location())
			continue
		}
		if ce.minute&(1<<uint(t.Minute())) == 0 {
			t = t.Add(time.Minute)
			continue
		}
		return t
	}
	return time.Time{}
}

func (ce *CronExpression) dateMatches(t time.Time) bool {
	return ce.day&(1<<uint(t.Day())) != 0 &&
		ce.month&(1<<uint(t.Month())) != 0 &&
		ce.weekday&(1<<uint(t.Weekday())) != 0
}

// ══════════════════════════════════════════════════════════════════════════════
// CRON SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// CronJob is one registered job plus its run bookkeeping.
type CronJob struct {
	Name       string
	Expression *CronExpression
	Job        Job
	LastRun    time.Time
	NextRun    time.Time
	RunCount   int64
	Enabled    bool
}

// CronScheduler runs jobs on cron expressions, evaluated once per minute in
// a single timezone.
type CronScheduler struct {
	mu       sync.RWMutex
	jobs     map[string]*CronJob
	logger   *slog.Logger
	location *time.Location
	running  bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// CronOption configures the CronScheduler.
type CronOption func(*CronScheduler)

// WithLocation sets the timezone cron expressions are evaluated in.
func WithLocation(loc *time.Location) CronOption {
	return func(cs *CronScheduler) {
		cs.location = loc
	}
}

// WithCronLogger sets the logger for the cron scheduler.
func WithCronLogger(logger *slog.Logger) CronOption {
	return func(cs *CronScheduler) {
		cs.logger = logger
	}
}

// NewCronScheduler creates a cron scheduler. Defaults to the local timezone
// and slog.Default().
func NewCronScheduler(opts ...CronOption) *CronScheduler {
	cs := &CronScheduler{
		jobs:     make(map[string]*CronJob),
		logger:   slog.Default(),
		location: time.Local,
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(cs)
	}
	return cs
}

// AddJob registers a job under the given cron expression. The job starts
// enabled.
func (cs *CronScheduler) AddJob(name string, cronExpr string, job Job) error {
	expr, err := ParseCronExpression(cronExpr)
	if err != nil {
		return fmt.Errorf("failed to parse cron expression: %w", err)
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	next := expr.Next(time.Now().In(cs.location))
	cs.jobs[name] = &CronJob{
		Name:       name,
		Expression: expr,
		Job:        job,
		NextRun:    next,
		Enabled:    true,
	}

	cs.logger.Info("cron job added",
		"job", name,
		"expression", cronExpr,
		"next_run", next.Format(time.RFC3339),
	)
	return nil
}

// RemoveJob removes a job by name.
func (cs *CronScheduler) RemoveJob(name string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	delete(cs.jobs, name)
	cs.logger.Info("cron job removed", "job", name)
}

// EnableJob re-enables a job and recomputes its next run.
func (cs *CronScheduler) EnableJob(name string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	job, ok := cs.jobs[name]
	if !ok {
		return fmt.Errorf("job not found: %s", name)
	}
	job.Enabled = true
	job.NextRun = job.Expression.Next(time.Now().In(cs.location))
	return nil
}

// DisableJob keeps the job registered but stops running it.
func (cs *CronScheduler) DisableJob(name string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	job, ok := cs.jobs[name]
	if !ok {
		return fmt.Errorf("job not found: %s", name)
	}
	job.Enabled = false
	return nil
}

// GetJobStatus returns a snapshot of one job.
func (cs *CronScheduler) GetJobStatus(name string) (*CronJob, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	job, ok := cs.jobs[name]
	if !ok {
		return nil, false
	}
	snapshot := *job
	return &snapshot, true
}

// ListJobs returns snapshots of every job, soonest next run first.
func (cs *CronScheduler) ListJobs() []*CronJob {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	out := make([]*CronJob, 0, len(cs.jobs))
	for _, job := range cs.jobs {
		snapshot := *job
		out = append(out, &snapshot)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].NextRun.Before(out[j].NextRun)
	})
	return out
}

// Start begins the evaluation loop.
func (cs *CronScheduler) Start(ctx context.Context) error {
	cs.mu.Lock()
	if cs.running {
		cs.mu.Unlock()
		return fmt.Errorf("cron scheduler already running")
	}
	cs.running = true
	cs.stopCh = make(chan struct{})
	cs.mu.Unlock()

	cs.logger.Info("cron scheduler started", "timezone", cs.location.String())

	cs.wg.Add(1)
	go cs.loop(ctx)
	return nil
}

// Stop halts the loop and waits for in-flight jobs.
func (cs *CronScheduler) Stop() {
	cs.mu.Lock()
	if !cs.running {
		cs.mu.Unlock()
		return
	}
	cs.running = false
	close(cs.stopCh)
	cs.mu.Unlock()

	cs.wg.Wait()
	cs.logger.Info("cron scheduler stopped")
}

// loop wakes at the top of every minute and fires due jobs.
func (cs *CronScheduler) loop(ctx context.Context) {
	defer cs.wg.Done()

	timer := time.NewTimer(cs.untilNextMinute())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cs.stopCh:
			return
		case <-timer.C:
			timer.Reset(cs.untilNextMinute())
			cs.runDue(ctx)
		}
	}
}

func (cs *CronScheduler) untilNextMinute() time.Duration {
	now := time.Now().In(cs.location)
	return time.Until(now.Truncate(time.Minute).Add(time.Minute))
}

// runDue fires every enabled job whose next run has arrived. Each job runs
// in its own goroutine so a slow job cannot delay the others.
func (cs *CronScheduler) runDue(ctx context.Context) {
	now := time.Now().In(cs.location)

	cs.mu.Lock()
	var due []*CronJob
	for _, job := range cs.jobs {
		if job.Enabled && !job.NextRun.After(now) {
			job.LastRun = now
			job.NextRun = job.Expression.Next(now)
			job.RunCount++
			due = append(due, job)
		}
	}
	cs.mu.Unlock()

	for _, job := range due {
		cs.wg.Add(1)
		go func(j *CronJob) {
			defer cs.wg.Done()

			started := time.Now()
			err := j.Job.Run(ctx)
			elapsed := time.Since(started)

			if err != nil {
				cs.logger.Error("cron job failed", "job", j.Name, "duration", elapsed, "error", err)
				return
			}
			cs.logger.Info("cron job completed", "job", j.Name, "duration", elapsed)
		}(job)
	}
}
