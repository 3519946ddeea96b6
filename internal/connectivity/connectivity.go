// Package connectivity reports whether the inventory server is reachable.
package connectivity

import (
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/kegdev/hearth/internal/logging"
)

// Checker is the single source of truth for "can we reach the remote store".
type Checker interface {
	IsOnline() bool
}

// Static reports a fixed state until Set changes it.
type Static struct {
	online atomic.Bool
}

func NewStatic(online bool) *Static {
	s := &Static{}
	s.online.Store(online)
	return s
}

func (s *Static) IsOnline() bool {
	return s.online.Load()
}

func (s *Static) Set(online bool) {
	s.online.Store(online)
}

// Probe checks the server's health endpoint. At most one request is made per
// interval; calls in between reuse the last answer.
type Probe struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter

	mu     sync.Mutex
	online bool
}

func NewProbe(serverURL string, interval time.Duration, timeout time.Duration) *Probe {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Probe{
		url:     strings.TrimRight(serverURL, "/") + "/healthz",
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

func (p *Probe) IsOnline() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.limiter.Allow() {
		return p.online
	}
	online := p.check()
	if online != p.online {
		logging.Info().Bool("online", online).Str("url", p.url).Msg("connectivity changed")
	}
	p.online = online
	return online
}

func (p *Probe) check() bool {
	resp, err := p.client.Get(p.url)
	if err != nil {
		logging.Debug().Err(err).Str("url", p.url).Msg("connectivity probe failed")
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}
