package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Freeeeeet/servicejobs/internal/service"
)

// Sweeper is implemented by service.SeriesService.
type Sweeper interface {
	GenerateAll(ctx context.Context) (service.SweepSummary, error)
}

// Scheduler rolls the generation window forward on a cron schedule.
type Scheduler struct {
	sweeper Sweeper
	logger  *zap.Logger

	c       *cron.Cron
	entry   cron.EntryID
	spec    string
	ctx     context.Context
	cancel  context.CancelFunc
	startup sync.WaitGroup
}

// NewScheduler validates spec (5 fields or a descriptor like @daily) in zone tz.
func NewScheduler(sweeper Sweeper, spec, tz string, logger *zap.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load sweep timezone: %w", err)
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", spec, err)
	}

	cl := cronLogger{log: logger.Sugar()}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	return &Scheduler{
		sweeper: sweeper,
		logger:  logger,
		c:       c,
		spec:    spec,
	}, nil
}

// Start registers the sweep, starts cron and runs one sweep right away.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	entry, err := s.c.AddFunc(s.spec, func() { s.sweep(s.ctx) })
	if err != nil {
		return fmt.Errorf("add sweep job: %w", err)
	}
	s.entry = entry

	s.logger.Info("Starting background scheduler", zap.String("schedule", s.spec))
	s.c.Start()

	s.startup.Add(1)
	go func() {
		defer s.startup.Done()
		s.sweep(s.ctx)
	}()

	return nil
}

// Stop cancels a running sweep and waits for it to return.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	if s.cancel != nil {
		s.cancel()
	}
	<-s.c.Stop().Done()
	s.startup.Wait()
}

// Next returns the next planned sweep, zero before Start.
func (s *Scheduler) Next() time.Time {
	if s.entry == 0 {
		return time.Time{}
	}
	return s.c.Entry(s.entry).Next
}

func (s *Scheduler) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	s.logger.Info("Starting occurrence generation sweep")

	summary, err := s.sweeper.GenerateAll(ctx)
	if err != nil {
		s.logger.Error("Generation sweep failed", zap.Error(err))
		return
	}

	s.logger.Info("Generation sweep completed",
		zap.Int("series", summary.Series),
		zap.Int("created", summary.Created),
		zap.Int("errors", summary.Errors),
		zap.Duration("took", summary.Duration),
	)
}
