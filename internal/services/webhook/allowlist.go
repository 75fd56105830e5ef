package webhook

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/gobill/billing-service/internal/domain/ports"
	"github.com/gobill/billing-service/pkg/observability"
)

// Allowlist verifies webhook source addresses against the provider's
// published list. The list is refreshed in the background on a fixed
// interval; a failed refresh logs a warning and keeps the last known list so
// ingestion never stalls on the provider's metadata endpoint.
type Allowlist struct {
	source   ports.WebhookIPSource
	logger   ports.Logger
	interval time.Duration

	mu    sync.RWMutex
	addrs map[string]struct{}
}

// NewAllowlist seeds the verifier with an initial address list (from config)
// so the service can accept deliveries before the first refresh completes.
func NewAllowlist(source ports.WebhookIPSource, seed []string, interval time.Duration, logger ports.Logger) *Allowlist {
	a := &Allowlist{
		source:   source,
		logger:   logger,
		interval: interval,
		addrs:    make(map[string]struct{}, len(seed)),
	}
	for _, ip := range seed {
		a.addrs[ip] = struct{}{}
	}
	observability.SetAllowlistSize(len(a.addrs))
	return a
}

// Allowed reports whether the remote address may deliver webhooks. An
// unparsable address is always denied. An empty allow-list denies everything;
// run with a seed list or wait for the first refresh.
func (a *Allowlist) Allowed(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	if net.ParseIP(host) == nil {
		return false
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.addrs[host]
	return ok
}

// Refresh fetches the provider's current address list and swaps it in. The
// old list stays in place on any failure.
func (a *Allowlist) Refresh(ctx context.Context) error {
	ips, err := a.source.WebhookSourceIPs(ctx)
	if err != nil {
		return err
	}
	if len(ips) == 0 {
		a.logger.Warn("provider returned empty webhook address list, keeping current")
		return nil
	}

	next := make(map[string]struct{}, len(ips))
	for _, ip := range ips {
		next[ip] = struct{}{}
	}

	a.mu.Lock()
	a.addrs = next
	a.mu.Unlock()

	observability.SetAllowlistSize(len(next))
	a.logger.Debug("webhook allow-list refreshed", ports.Int("addresses", len(next)))
	return nil
}

// Start refreshes once immediately, then on every interval tick until ctx is
// cancelled. Refresh failures are logged and skipped.
func (a *Allowlist) Start(ctx context.Context) {
	refresh := func() {
		if err := a.Refresh(ctx); err != nil {
			a.logger.Warn("webhook allow-list refresh failed, keeping last known list",
				ports.Err(err))
		}
	}
	refresh()

	go func() {
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				refresh()
			}
		}
	}()
}
