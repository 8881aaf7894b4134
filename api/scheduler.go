/*
scheduler.go - Background shift generation from auto-generate templates

PURPOSE:
  Periodically expands templates flagged AutoGenerate into concrete shifts
  within their advance-days window. Generation goes through the same
  conflict pipeline as manual scheduling, so dates that already hold a
  committed entry are skipped and repeated runs are safe.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Each run lists auto-generate templates and generates per template
  - Templates whose window has closed (end date passed) are skipped

USAGE:
  scheduler := NewGenerationScheduler(handler.Service, store, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - roster/service.go: GenerateShiftsFromTemplate
  - schedule/template.go: Expansion rules
*/
package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fitgrid/roster-engine/roster"
	"github.com/fitgrid/roster-engine/schedule"
)

// GenerationScheduler drives periodic template expansion.
type GenerationScheduler struct {
	Service       *roster.Service
	Templates     schedule.TemplateStore
	CheckInterval time.Duration
	Log           *zap.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewGenerationScheduler(service *roster.Service, templates schedule.TemplateStore, logger *zap.Logger) *GenerationScheduler {
	return &GenerationScheduler{
		Service:       service,
		Templates:     templates,
		CheckInterval: 1 * time.Hour,
		Log:           logger,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (gs *GenerationScheduler) Start() {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	gs.ticker = time.NewTicker(gs.CheckInterval)
	gs.wg.Add(1)
	go gs.run()

	gs.Log.Info("generation scheduler started", zap.Duration("interval", gs.CheckInterval))
}

// Stop stops the scheduler.
func (gs *GenerationScheduler) Stop() {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.ticker != nil {
		gs.ticker.Stop()
		close(gs.stop)
		gs.wg.Wait()
		gs.Log.Info("generation scheduler stopped")
	}
}

// RunNow triggers an immediate generation pass (for testing/admin).
func (gs *GenerationScheduler) RunNow() {
	gs.generateAll()
}

func (gs *GenerationScheduler) run() {
	defer gs.wg.Done()

	// Run immediately on start
	gs.generateAll()

	for {
		select {
		case <-gs.ticker.C:
			gs.generateAll()
		case <-gs.stop:
			return
		}
	}
}

func (gs *GenerationScheduler) generateAll() {
	ctx := context.Background()
	today := schedule.Today()

	templates, err := gs.Templates.ListAutoGenerateTemplates(ctx)
	if err != nil {
		gs.Log.Error("failed to list auto-generate templates", zap.Error(err))
		return
	}

	created, skipped := 0, 0
	for _, t := range templates {
		result, err := gs.Service.GenerateShiftsFromTemplate(ctx, t.ID, today, "scheduler")
		if err != nil {
			// Expired windows are expected once a template's end date
			// passes; anything else is worth a log line.
			if errors.Is(err, schedule.ErrInvalidTemplate) {
				continue
			}
			gs.Log.Error("failed to generate shifts",
				zap.String("template_id", string(t.ID)), zap.Error(err))
			continue
		}
		created += len(result.Created)
		skipped += len(result.Skipped)
	}

	if created > 0 || skipped > 0 {
		gs.Log.Info("generation pass completed",
			zap.Int("created", created), zap.Int("skipped", skipped))
	}
}
