package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/lnhm/plant-sensor-pipeline/internal/pipeline"
)

// Scheduler periodically runs the full ingestion pipeline.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    *pipeline.Runner
	interval  time.Duration
}

// New creates a new Scheduler.
func New(runner *pipeline.Runner, interval time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		interval:  interval,
	}
}

// Start schedules the periodic pipeline job and starts the underlying
// scheduler. A failed run is logged and retried at the next tick; it never
// takes the service down.
func (s *Scheduler) Start() error {
	seconds := int(s.interval.Seconds())
	if seconds <= 0 {
		seconds = 60
	}

	_, err := s.scheduler.Every(seconds).Seconds().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.interval)
		defer cancel()

		if err := s.runner.Run(ctx); err != nil {
			log.Printf("scheduler: pipeline run failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
