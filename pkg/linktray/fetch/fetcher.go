// Package fetch pulls candidate links from external feeds and hands them to
// the store once per refresh cycle. Each fetcher owns its own id space; the
// store's identity normalizer reconciles them.
package fetch

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mpearce/linktray/pkg/linktray/store"
)

const fetchTimeout = 60 * time.Second

// Fetcher is one external feed source.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]store.Appearance, error)
}

// Recorder receives fetched appearances. *store.Store satisfies it.
type Recorder interface {
	RecordAppearance(store.Appearance) error
}

// Refresher runs all configured fetchers on a cron schedule and feeds their
// results into the store. A failing fetcher is logged and skipped; the other
// feeds still run.
type Refresher struct {
	recorder Recorder
	log      *zap.Logger
	fetchers []Fetcher
	cron     *cron.Cron
}

// NewRefresher creates a refresher over the given feeds.
func NewRefresher(recorder Recorder, log *zap.Logger, fetchers ...Fetcher) *Refresher {
	return &Refresher{
		recorder: recorder,
		log:      log,
		fetchers: fetchers,
	}
}

// RefreshOnce runs a single refresh cycle across all feeds.
func (r *Refresher) RefreshOnce(ctx context.Context) {
	for _, f := range r.fetchers {
		links, err := f.Fetch(ctx)
		if err != nil {
			r.log.Warn("feed fetch failed", zap.String("feed", f.Name()), zap.Error(err))
			continue
		}
		recorded := 0
		for _, link := range links {
			if err := r.recorder.RecordAppearance(link); err != nil {
				continue
			}
			recorded++
		}
		r.log.Info("feed refreshed",
			zap.String("feed", f.Name()),
			zap.Int("fetched", len(links)),
			zap.Int("recorded", recorded),
		)
	}
}

// Start schedules periodic refreshes with the given cron spec and runs one
// cycle immediately in the background.
func (r *Refresher) Start(spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, r.runCycle); err != nil {
		return err
	}
	c.Start()
	r.cron = c
	go r.runCycle()
	return nil
}

// Stop halts the schedule. Running cycles finish on their own.
func (r *Refresher) Stop() {
	if r.cron != nil {
		r.cron.Stop()
	}
}

func (r *Refresher) runCycle() {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()
	r.RefreshOnce(ctx)
}
