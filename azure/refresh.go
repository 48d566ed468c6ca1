package azure

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/saruyev/flexconfig"
)

const minRefreshInterval = time.Second

// DefaultRefreshInterval is used when RefreshOptions leaves Interval zero.
const DefaultRefreshInterval = 30 * time.Second

// RefreshOptions configures a Refresher.
type RefreshOptions struct {
	// Interval is the minimum time between refresh checks. Calls inside the
	// window return immediately without touching the service. Defaults to
	// DefaultRefreshInterval; values below one second are raised to it.
	Interval time.Duration

	// WatchedSettings are the sentinel key-values whose ETags gate a
	// reload. At least one is required.
	WatchedSettings []WatchedSetting

	// OnRefreshSuccess runs after a refresh that found changes and reloaded
	// the configuration.
	OnRefreshSuccess func()
}

// Refresher polls watched settings and reloads the configuration when any
// of their ETags change. It is safe for concurrent use; overlapping Refresh
// calls collapse into one check per interval.
type Refresher struct {
	cfg       *flexconfig.FlexConfig
	client    SettingsClient
	watched   []WatchedSetting
	interval  time.Duration
	onSuccess func()

	mu       sync.Mutex
	etags    map[WatchedSetting]string
	nextTime time.Time
}

// NewRefresher builds a Refresher checking sentinels through client and
// reloading cfg on change.
func NewRefresher(cfg *flexconfig.FlexConfig, client SettingsClient, opts RefreshOptions) (*Refresher, error) {
	if len(opts.WatchedSettings) == 0 {
		return nil, ErrEmptyRefreshCheck
	}

	interval := opts.Interval
	if interval == 0 {
		interval = DefaultRefreshInterval
	}
	if interval < minRefreshInterval {
		interval = minRefreshInterval
	}

	return &Refresher{
		cfg:       cfg,
		client:    client,
		watched:   opts.WatchedSettings,
		interval:  interval,
		onSuccess: opts.OnRefreshSuccess,
		etags:     make(map[WatchedSetting]string, len(opts.WatchedSettings)),
	}, nil
}

// Refresh checks the watched settings and reloads the configuration when a
// sentinel changed. Inside the interval window it is a no-op. The first call
// records baseline ETags without reloading.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if now.Before(r.nextTime) {
		return nil
	}

	// Fetch every sentinel before committing any ETag. Recording baselines
	// mid-loop would lose an earlier sentinel's change when a later check
	// fails.
	fetched := make(map[WatchedSetting]string, len(r.watched))
	for _, watched := range r.watched {
		setting, err := r.client.GetSetting(ctx, watched.Key, watched.Label)
		if err != nil {
			return fmt.Errorf("check sentinel %s: %w", watched.Key, err)
		}
		fetched[watched] = setting.ETag
	}

	first := len(r.etags) == 0
	changed := false
	for watched, etag := range fetched {
		if r.etags[watched] != etag {
			r.etags[watched] = etag
			changed = true
		}
	}
	r.nextTime = now.Add(r.interval)

	if first || !changed {
		return nil
	}

	if err := r.cfg.Reload(ctx); err != nil {
		return fmt.Errorf("reload after sentinel change: %w", err)
	}
	if r.onSuccess != nil {
		r.onSuccess()
	}
	return nil
}

// Run polls Refresh on the interval until ctx is canceled. Errors are
// reported through errs when non-nil and polling continues.
func (r *Refresher) Run(ctx context.Context, errs func(error)) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil && errs != nil {
				errs(err)
			}
		}
	}
}
