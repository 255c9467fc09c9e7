package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Counter is the slice of a repository the reporter needs.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// Snapshot is one report of store totals.
type Snapshot struct {
	Users int64
	Todos int64
	Took  time.Duration
}

// StatsReporter periodically logs how many users and todos the store holds.
type StatsReporter struct {
	users Counter
	todos Counter
	cron  *cron.Cron
}

// NewStatsReporter parses schedule (standard cron syntax or a descriptor such
// as "@hourly") and registers the report job. Nothing runs until Start.
func NewStatsReporter(users, todos Counter, schedule string) (*StatsReporter, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid stats schedule %q: %w", schedule, err)
	}

	r := &StatsReporter{
		users: users,
		todos: todos,
		cron:  cron.New(),
	}
	if _, err := r.cron.AddFunc(schedule, r.run); err != nil {
		return nil, fmt.Errorf("register stats job: %w", err)
	}
	return r, nil
}

// Start runs the scheduler in its own goroutine.
func (r *StatsReporter) Start() {
	log.Info().Msg("Starting stats reporter...")
	r.cron.Start()
}

// Stop halts the scheduler and waits for a running report to finish.
func (r *StatsReporter) Stop() {
	<-r.cron.Stop().Done()
	log.Info().Msg("Stopped stats reporter.")
}

func (r *StatsReporter) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snap, err := r.Report(ctx)
	if err != nil {
		log.Error().Err(err).Msg("StatsReporter: failed to collect counts")
		return
	}
	log.Info().
		Int64("users", snap.Users).
		Int64("todos", snap.Todos).
		Dur("took", snap.Took).
		Msg("Store stats")
}

// Report collects the current totals.
func (r *StatsReporter) Report(ctx context.Context) (Snapshot, error) {
	start := time.Now()
	users, err := r.users.Count(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("count users: %w", err)
	}
	todos, err := r.todos.Count(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("count todos: %w", err)
	}
	return Snapshot{Users: users, Todos: todos, Took: time.Since(start)}, nil
}
