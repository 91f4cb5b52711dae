package firmware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type UpstreamConfig struct {
	BaseURL string // e.g. https://api.github.com
	Timeout time.Duration
	Retries int

	BreakerFailures int
	BreakerOpenFor  time.Duration
}

// githubRelease is the subset of the GitHub releases payload we read.
type githubRelease struct {
	TagName     string    `json:"tag_name"`
	PublishedAt time.Time `json:"published_at"`
	Draft       bool      `json:"draft"`
	Assets      []struct {
		Name               string `json:"name"`
		Size               int64  `json:"size"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// Upstream fetches releases over HTTP behind a circuit breaker and keeps the
// last good answer per repository.
type Upstream struct {
	base    string
	client  *http.Client
	retries int
	breaker *gobreaker.CircuitBreaker
	log     *zap.Logger

	mu       sync.RWMutex
	lastGood map[string][]Release
}

func NewUpstream(cfg UpstreamConfig, logger *zap.Logger) *Upstream {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.BreakerFailures <= 0 {
		cfg.BreakerFailures = 3
	}
	if cfg.BreakerOpenFor <= 0 {
		cfg.BreakerOpenFor = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	u := &Upstream{
		base:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		client:   &http.Client{Timeout: cfg.Timeout},
		retries:  cfg.Retries,
		log:      logger,
		lastGood: map[string][]Release{},
	}
	fails := uint32(cfg.BreakerFailures)
	u.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "firmware-releases",
		Timeout: cfg.BreakerOpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= fails
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("breaker state change", zap.String("breaker", name), zap.Stringer("from", from), zap.Stringer("to", to))
		},
	})
	return u
}

// Releases returns the releases of repo. When the upstream fails the last
// good answer is served and the error is dropped.
func (u *Upstream) Releases(ctx context.Context, repo string) ([]Release, error) {
	res, err := u.breaker.Execute(func() (any, error) {
		return u.fetchWithRetry(ctx, repo)
	})
	if err == nil {
		rels := res.([]Release)
		u.mu.Lock()
		u.lastGood[repo] = rels
		u.mu.Unlock()
		return rels, nil
	}

	u.mu.RLock()
	cached, ok := u.lastGood[repo]
	u.mu.RUnlock()
	if ok {
		u.log.Warn("release upstream failed, serving cache", zap.String("repo", repo), zap.Error(err))
		return cached, nil
	}
	return nil, err
}

func (u *Upstream) fetchWithRetry(ctx context.Context, repo string) ([]Release, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = time.Second

	var out []Release
	err := backoff.Retry(func() error {
		rels, err := u.fetch(ctx, repo)
		if err != nil {
			return err
		}
		out = rels
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(u.retries)), ctx))
	return out, err
}

func (u *Upstream) fetch(ctx context.Context, repo string) ([]Release, error) {
	url := fmt.Sprintf("%s/repos/%s/releases", u.base, strings.Trim(repo, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("releases request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, backoff.Permanent(fmt.Errorf("repo %s not found", repo))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("releases upstream status %d", resp.StatusCode)
	}

	var raw []githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("releases decode: %w", err))
	}
	rels := make([]Release, 0, len(raw))
	for _, r := range raw {
		if r.Draft {
			continue
		}
		rel := Release{Tag: r.TagName, PublishedAt: r.PublishedAt, Assets: make([]Asset, 0, len(r.Assets))}
		for _, a := range r.Assets {
			rel.Assets = append(rel.Assets, Asset{Name: a.Name, Size: a.Size, DownloadURL: a.BrowserDownloadURL})
		}
		rels = append(rels, rel)
	}
	return rels, nil
}

// BreakerState exposes the breaker state for health reporting.
func (u *Upstream) BreakerState() string {
	return u.breaker.State().String()
}
