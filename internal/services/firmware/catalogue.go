package firmware

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/pump_simulator/internal/model"
)

const (
	DefaultRepo                = "dslimp/peristaltic-pump"
	DefaultAssetName           = "firmware.bin"
	DefaultFilesystemAssetName = "littlefs.bin"

	updateMessage = "firmware and filesystem updated, restarting"
)

type Asset struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"downloadUrl"`
}

type Release struct {
	Tag         string    `json:"tag"`
	PublishedAt time.Time `json:"publishedAt"`
	Assets      []Asset   `json:"assets"`
}

// Config is the OTA configuration shown by /api/firmware/config.
type Config struct {
	Repo                string `json:"repo"`
	AssetName           string `json:"assetName"`
	FilesystemAssetName string `json:"filesystemAssetName"`
	CurrentVersion      string `json:"currentVersion"`
}

type ConfigUpdate struct {
	Repo                *string `json:"repo,omitempty"`
	AssetName           *string `json:"assetName,omitempty"`
	FilesystemAssetName *string `json:"filesystemAssetName,omitempty"`
}

type UpdateRequest struct {
	Mode          string // latest | tag | url
	Tag           string
	URL           string
	FilesystemURL string
}

type UpdateResult struct {
	OK                  bool   `json:"ok"`
	TicketID            string `json:"ticketId"`
	Tag                 string `json:"tag"`
	AssetName           string `json:"assetName"`
	FilesystemAssetName string `json:"filesystemAssetName"`
	Message             string `json:"message"`
	URL                 string `json:"url,omitempty"`
	FilesystemURL       string `json:"filesystemUrl,omitempty"`
}

type ProbeResult struct {
	OK            bool   `json:"ok"`
	URL           string `json:"url"`
	StatusCode    int    `json:"statusCode"`
	ContentLength int64  `json:"contentLength"`
}

type UploadResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// ReleaseSource lists the published releases of a repository, newest first.
type ReleaseSource interface {
	Releases(ctx context.Context, repo string) ([]Release, error)
}

// builtinReleases is served when no upstream is configured or reachable.
func builtinReleases() []Release {
	return []Release{
		{
			Tag:         "v0.2.1",
			PublishedAt: time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC),
			Assets: []Asset{
				{Name: "firmware.bin", Size: 1024 * 512, DownloadURL: "https://example.com/v0.2.1/firmware.bin"},
				{Name: "littlefs.bin", Size: 1024 * 128, DownloadURL: "https://example.com/v0.2.1/littlefs.bin"},
			},
		},
		{
			Tag:         "v0.2.0",
			PublishedAt: time.Date(2026, 2, 12, 0, 0, 0, 0, time.UTC),
			Assets: []Asset{
				{Name: "firmware.bin", Size: 1024 * 500, DownloadURL: "https://example.com/v0.2.0/firmware.bin"},
			},
		},
	}
}

// Service keeps the OTA settings and simulates updates. Nothing is flashed.
type Service struct {
	mu     sync.RWMutex
	cfg    Config
	source ReleaseSource
	log    *zap.Logger
}

// NewService builds the firmware service. source may be nil.
func NewService(currentVersion, repo string, source ReleaseSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(repo) == "" {
		repo = DefaultRepo
	}
	return &Service{
		cfg: Config{
			Repo:                strings.TrimSpace(repo),
			AssetName:           DefaultAssetName,
			FilesystemAssetName: DefaultFilesystemAssetName,
			CurrentVersion:      currentVersion,
		},
		source: source,
		log:    logger,
	}
}

func (s *Service) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// UpdateConfig trims every field; blank asset names fall back to the defaults.
func (s *Service) UpdateConfig(u ConfigUpdate) Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.Repo != nil {
		s.cfg.Repo = strings.TrimSpace(*u.Repo)
	}
	if u.AssetName != nil {
		s.cfg.AssetName = orDefault(*u.AssetName, DefaultAssetName)
	}
	if u.FilesystemAssetName != nil {
		s.cfg.FilesystemAssetName = orDefault(*u.FilesystemAssetName, DefaultFilesystemAssetName)
	}
	return s.cfg
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

// Releases asks the upstream source first and falls back to the built-in list.
func (s *Service) Releases(ctx context.Context) []Release {
	repo := s.Config().Repo
	if s.source != nil && repo != "" {
		rels, err := s.source.Releases(ctx, repo)
		if err == nil && len(rels) > 0 {
			return rels
		}
		s.log.Warn("release lookup failed, serving built-in catalogue", zap.String("repo", repo), zap.Error(err))
	}
	return builtinReleases()
}

func (s *Service) Update(ctx context.Context, req UpdateRequest) (UpdateResult, error) {
	mode := strings.TrimSpace(req.Mode)
	if mode == "" {
		mode = "latest"
	}

	var tag string
	switch mode {
	case "latest":
		rels := s.Releases(ctx)
		if len(rels) == 0 {
			return UpdateResult{}, model.NotFound("github release request failed")
		}
		tag = rels[0].Tag
	case "tag":
		for _, r := range s.Releases(ctx) {
			if r.Tag == req.Tag {
				tag = r.Tag
				break
			}
		}
		if tag == "" {
			return UpdateResult{}, model.NotFound("github release request failed")
		}
	case "url":
		if !isHTTPURL(req.URL) || !isHTTPURL(req.FilesystemURL) {
			return UpdateResult{}, model.Invalid("url and filesystemUrl must be valid http(s) urls when mode=url")
		}
		tag = "local"
	default:
		return UpdateResult{}, model.Invalid("mode must be latest, tag or url")
	}

	cfg := s.Config()
	res := UpdateResult{
		OK:                  true,
		TicketID:            uuid.NewString(),
		Tag:                 tag,
		AssetName:           cfg.AssetName,
		FilesystemAssetName: cfg.FilesystemAssetName,
		Message:             updateMessage,
	}
	if mode == "url" {
		res.URL, res.FilesystemURL = req.URL, req.FilesystemURL
	}
	s.log.Info("firmware update accepted", zap.String("ticket", res.TicketID), zap.String("mode", mode), zap.String("tag", tag))
	return res, nil
}

// Probe validates a download url. The reply is simulated.
func (s *Service) Probe(rawURL string) (ProbeResult, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ProbeResult{}, model.Invalid("url query arg is required")
	}
	if !isHTTPURL(rawURL) {
		return ProbeResult{}, model.Invalid("url must be valid http(s) url")
	}
	return ProbeResult{OK: true, URL: rawURL, StatusCode: 200, ContentLength: 1024}, nil
}

// Upload accepts a firmware or filesystem image. kind is "firmware" or "filesystem".
func (s *Service) Upload(kind string, size int64) (UploadResult, error) {
	var msg string
	switch kind {
	case "firmware":
		msg = "firmware uploaded, restarting"
	case "filesystem":
		msg = "filesystem uploaded"
	default:
		return UploadResult{}, model.NotFound("not found")
	}
	s.log.Info("image uploaded", zap.String("kind", kind), zap.Int64("bytes", size))
	return UploadResult{OK: true, Message: msg}, nil
}

func isHTTPURL(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}
