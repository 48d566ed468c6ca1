package flexconfig

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
)

// RefreshScheduler reloads a configuration on a cron schedule. It complements
// the file watcher for sources without change notification, such as remote
// providers polled on a fixed cadence.
type RefreshScheduler struct {
	cfg    *FlexConfig
	cron   *cron.Cron
	logger Logger
}

// NewRefreshScheduler creates a scheduler bound to the given config. The
// schedule uses the standard five-field cron syntax, plus descriptors like
// "@every 30s".
func NewRefreshScheduler(cfg *FlexConfig, spec string) (*RefreshScheduler, error) {
	root := cfg.rootConfig()
	s := &RefreshScheduler{
		cfg:    root,
		cron:   cron.New(),
		logger: cfg.Logger(),
	}

	_, err := s.cron.AddFunc(spec, func() {
		ctx := context.Background()
		if err := root.Reload(ctx); err != nil {
			s.logger.Error("scheduled reload failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins scheduled reloads in a background goroutine.
func (s *RefreshScheduler) Start() {
	s.cron.Start()
	s.logger.Info("refresh scheduler started")
}

// Stop halts scheduling and waits for a running reload to finish.
func (s *RefreshScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("refresh scheduler stopped")
}
