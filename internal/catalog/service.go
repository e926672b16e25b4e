package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrNoCatalog is returned when no catalog has ever been loaded.
var ErrNoCatalog = errors.New("catalog not available")

// Service caches the grouped catalog and reloads it from its Source once the
// cached copy is older than ttl.
type Service struct {
	source Source
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	group    Group
	loadedAt time.Time
	loaded   bool
}

// NewService constructs a catalog service.
func NewService(source Source, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{source: source, ttl: ttl, logger: logger, now: time.Now}
}

// Current returns the cached catalog, reloading it when stale. If a reload
// fails and an older copy exists, the older copy is served.
func (s *Service) Current(ctx context.Context) (Group, error) {
	s.mu.RLock()
	fresh := s.loaded && (s.ttl <= 0 || s.now().Sub(s.loadedAt) < s.ttl)
	group := s.group
	s.mu.RUnlock()
	if fresh {
		return group, nil
	}

	group, err := s.Refresh(ctx)
	if err == nil {
		return group, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.loaded {
		s.logger.Warn("catalog reload failed, serving cached copy", slog.Any("error", err))
		return s.group, nil
	}
	return Group{}, err
}

// Refresh reloads the catalog unconditionally.
func (s *Service) Refresh(ctx context.Context) (Group, error) {
	records, err := s.source.Fetch(ctx)
	if err != nil {
		s.mu.RLock()
		loaded := s.loaded
		s.mu.RUnlock()
		if loaded {
			return Group{}, err
		}
		return Group{}, errors.Join(ErrNoCatalog, err)
	}

	points := Normalize(records)
	group := NewGroup(points)

	s.mu.Lock()
	s.group = group
	s.loadedAt = s.now()
	s.loaded = true
	s.mu.Unlock()

	s.logger.Info("catalog loaded",
		slog.Int("records", len(records)),
		slog.Int("access_points", len(points)),
		slog.Int("locations", len(group.Locations())),
	)
	return group, nil
}
