// Package manager provides business logic and entity management for
// marketstats.
//
// Every operation returns a result.Result. Expected domain failures are
// decided by explicit precondition checks against the repository; any other
// repository error becomes a KindFault. A mutation invalidates the aggregate
// cache after the repository commit and before returning; a failed mutation
// never does.
package manager

import (
	"context"
	"fmt"
	"sync"

	"github.com/xtxerr/marketstats/internal/constants"
	"github.com/xtxerr/marketstats/internal/logging"
	"github.com/xtxerr/marketstats/internal/stats"
	"github.com/xtxerr/marketstats/internal/store"
)

var log = logging.Component("manager")

// =============================================================================
// Repository Boundary
// =============================================================================

// Repository is the persistence boundary the services work against.
// *store.Store implements it.
type Repository interface {
	CreateCountry(ctx context.Context, c *store.Country) error
	GetCountry(ctx context.Context, id int64) (*store.Country, error)
	GetCountryByName(ctx context.Context, name constants.Country) (*store.Country, error)
	ListCountries(ctx context.Context) ([]*store.Country, error)
	CountMarketsByCountry(ctx context.Context, countryID int64) (int, error)
	DeleteCountry(ctx context.Context, id int64) error

	CreateMarket(ctx context.Context, m *store.Market) error
	GetMarket(ctx context.Context, id int64) (*store.Market, error)
	GetMarketByCode(ctx context.Context, code string) (*store.Market, error)
	ListMarkets(ctx context.Context) ([]*store.Market, error)
	ListMarketsByIDs(ctx context.Context, ids []int64) ([]*store.Market, error)
	UpdateMarketDescription(ctx context.Context, id int64, description string) error
	DeleteMarket(ctx context.Context, id int64) error

	CreateParticipant(ctx context.Context, p *store.Participant, marketIDs []int64) error
	GetParticipant(ctx context.Context, id int64) (*store.Participant, error)
	GetParticipantByIdentification(ctx context.Context, identification string, idType constants.IdentificationType) (*store.Participant, error)
	ListParticipants(ctx context.Context) ([]*store.Participant, error)
	ListParticipantsByMarket(ctx context.Context, marketID int64) ([]*store.Participant, error)
	UpdateParticipantDescription(ctx context.Context, id int64, description string) error
	DeleteParticipant(ctx context.Context, id int64) error

	AddMembership(ctx context.Context, marketID, participantID int64) error
	RemoveMembership(ctx context.Context, marketID, participantID int64) error
	HasMembership(ctx context.Context, marketID, participantID int64) (bool, error)

	Health(ctx context.Context) error
	Close() error
}

var _ Repository = (*store.Store)(nil)

// =============================================================================
// Manager
// =============================================================================

// Config holds manager configuration.
type Config struct {
	// Store configures the database.
	Store store.Config

	// CacheSlot backs the aggregate cache. Nil selects the memory slot.
	CacheSlot stats.Slot
}

// Manager owns the repository and the aggregate cache and exposes the
// per-entity services.
type Manager struct {
	repo  Repository
	cache *stats.Cache

	Countries    *CountryService
	Markets      *MarketService
	Participants *ParticipantService

	stopOnce sync.Once
	stopErr  error
}

// New opens the store and builds the services around one cache.
func New(cfg *Config) (*Manager, error) {
	if cfg == nil {
		cfg = &Config{Store: store.DefaultConfig()}
	}

	s, err := store.New(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	log.Info("store opened", "driver", s.Driver())
	return NewWithRepository(s, stats.NewCache(cfg.CacheSlot)), nil
}

// NewWithRepository builds a manager over an existing repository and cache.
// A nil cache selects a fresh memory cache.
func NewWithRepository(repo Repository, cache *stats.Cache) *Manager {
	if cache == nil {
		cache = stats.NewCache(nil)
	}

	m := &Manager{
		repo:  repo,
		cache: cache,
	}
	m.Countries = &CountryService{repo: repo, cache: cache}
	m.Markets = &MarketService{repo: repo, cache: cache}
	m.Participants = &ParticipantService{repo: repo, cache: cache}
	return m
}

// Cache returns the aggregate cache.
func (m *Manager) Cache() *stats.Cache {
	return m.cache
}

// Health checks repository connectivity.
func (m *Manager) Health(ctx context.Context) error {
	return m.repo.Health(ctx)
}

// Stop closes the repository. It is safe to call more than once.
func (m *Manager) Stop() error {
	m.stopOnce.Do(func() {
		m.stopErr = m.repo.Close()
		log.Info("manager stopped")
	})
	return m.stopErr
}
