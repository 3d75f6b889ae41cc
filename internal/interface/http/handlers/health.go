package handlers

import (
	"context"
	"strings"
	"sync"
	"time"
)

// perCheckTimeout bounds each registered probe so one hung dependency
// cannot stall the whole health endpoint.
const perCheckTimeout = 5 * time.Second

// HealthChecker is what the HTTP server needs from a health implementation.
type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
}

// HealthCheckFunc probes a single dependency. A nil return means healthy.
type HealthCheckFunc func(ctx context.Context) error

// HealthStatus is the aggregated result reported by /health and /ready.
type HealthStatus struct {
	Healthy   bool                   `json:"healthy"`
	Ready     bool                   `json:"ready"`
	Message   string                 `json:"message,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Uptime    string                 `json:"uptime,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
}

// CheckResult is the outcome of one dependency probe.
type CheckResult struct {
	Healthy     bool      `json:"healthy"`
	Message     string    `json:"message,omitempty"`
	Duration    string    `json:"duration,omitempty"`
	LastChecked time.Time `json:"last_checked,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Composite checker
// ─────────────────────────────────────────────────────────────────────────────

// CompositeHealthChecker runs a set of named probes concurrently and folds
// the results into a single HealthStatus.
type CompositeHealthChecker struct {
	mu        sync.RWMutex
	checks    map[string]HealthCheckFunc
	startTime time.Time
	version   string
}

// NewCompositeHealthChecker creates an empty checker reporting the given
// build version.
func NewCompositeHealthChecker(version string) *CompositeHealthChecker {
	return &CompositeHealthChecker{
		checks:    make(map[string]HealthCheckFunc),
		startTime: time.Now(),
		version:   version,
	}
}

// AddCheck registers or replaces the probe with the given name.
func (c *CompositeHealthChecker) AddCheck(name string, check HealthCheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// RemoveCheck unregisters a probe. Removing an unknown name is a no-op.
func (c *CompositeHealthChecker) RemoveCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// Check runs every registered probe in parallel and reports the combined
// status. The service counts as ready only when all probes pass.
func (c *CompositeHealthChecker) Check(ctx context.Context) HealthStatus {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	probes := make([]HealthCheckFunc, 0, len(c.checks))
	for name, fn := range c.checks {
		names = append(names, name)
		probes = append(probes, fn)
	}
	c.mu.RUnlock()

	status := HealthStatus{
		Healthy:   true,
		Ready:     true,
		Checks:    make(map[string]CheckResult, len(names)),
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Version:   c.version,
	}

	if len(names) == 0 {
		status.Message = "No health checks registered"
		return status
	}

	results := make([]CheckResult, len(probes))
	var wg sync.WaitGroup
	for i, probe := range probes {
		wg.Add(1)
		go func(i int, probe HealthCheckFunc) {
			defer wg.Done()
			results[i] = runProbe(ctx, probe)
		}(i, probe)
	}
	wg.Wait()

	var failed []string
	for i, name := range names {
		status.Checks[name] = results[i]
		if !results[i].Healthy {
			status.Healthy = false
			status.Ready = false
			failed = append(failed, name)
		}
	}

	if status.Healthy {
		status.Message = "All checks passed"
	} else {
		status.Message = "Some checks failed: " + strings.Join(failed, ", ")
	}
	return status
}

func runProbe(ctx context.Context, probe HealthCheckFunc) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, perCheckTimeout)
	defer cancel()

	start := time.Now()
	err := probe(ctx)

	result := CheckResult{
		Healthy:     err == nil,
		Message:     "OK",
		Duration:    time.Since(start).Round(time.Millisecond).String(),
		LastChecked: time.Now().UTC(),
	}
	if err != nil {
		result.Message = err.Error()
	}
	return result
}

// ─────────────────────────────────────────────────────────────────────────────
// Probe constructors
// ─────────────────────────────────────────────────────────────────────────────

// Pinger covers both postgres.Connection and redis.Cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewDatabaseCheck probes the Postgres pool.
func NewDatabaseCheck(db Pinger) HealthCheckFunc {
	return func(ctx context.Context) error {
		return db.Ping(ctx)
	}
}

// NewCacheCheck probes the Redis connection.
func NewCacheCheck(cache Pinger) HealthCheckFunc {
	return func(ctx context.Context) error {
		return cache.Ping(ctx)
	}
}

// NoopHealthChecker reports healthy unconditionally. Used in tests and as
// a placeholder when no dependencies are wired.
type NoopHealthChecker struct {
	startTime time.Time
}

// NewNoopHealthChecker creates a NoopHealthChecker.
func NewNoopHealthChecker() *NoopHealthChecker {
	return &NoopHealthChecker{startTime: time.Now()}
}

// Check reports healthy.
func (n *NoopHealthChecker) Check(ctx context.Context) HealthStatus {
	return HealthStatus{
		Healthy:   true,
		Ready:     true,
		Message:   "OK",
		Uptime:    time.Since(n.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
	}
}
