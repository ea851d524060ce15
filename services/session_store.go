package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studioguideapi/consultation"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const DefaultSessionTTL = 2 * time.Hour

// upper bound of live consultations kept in memory
const maxSessions = 10000

var ErrSessionNotFound = errors.New("session not found")

type SessionStoreProvider interface {
	Create(ctx context.Context) (*consultation.Controller, error)
	Get(ctx context.Context, id string) (*consultation.Controller, error)
	Delete(ctx context.Context, id string) error
}

// SessionStore keeps one consultation controller per browser session in a
// Ristretto cache. Every successful Get extends the session by ttl.
type SessionStore struct {
	cache   *cache.Cache[*consultation.Controller]
	client  *ristretto.Cache
	stylist consultation.Stylist
	ttl     time.Duration
	log     zerolog.Logger
}

func NewSessionStore(stylist consultation.Stylist, ttl time.Duration, logger zerolog.Logger) (*SessionStore, error) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	logger = logger.With().Str("component", "session_store").Logger()

	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        maxSessions * 10,
		// every session costs 1, so MaxCost is a session count
		MaxCost:            maxSessions,
		IgnoreInternalCost: true,
		BufferItems:        64,
		OnEvict: func(item *ristretto.Item) {
			if controller, ok := item.Value.(*consultation.Controller); ok {
				logger.Info().Str("session", controller.ID()).Msg("session expired")
				controller.Close()
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}

	ristrettoStore := ristretto_store.NewRistretto(ristrettoCache)

	return &SessionStore{
		cache:   cache.New[*consultation.Controller](ristrettoStore),
		client:  ristrettoCache,
		stylist: stylist,
		ttl:     ttl,
		log:     logger,
	}, nil
}

func (s *SessionStore) put(ctx context.Context, controller *consultation.Controller) error {
	err := s.cache.Set(ctx, controller.ID(), controller, store.WithExpiration(s.ttl), store.WithCost(1))
	if err != nil {
		return fmt.Errorf("failed to store session %s: %w", controller.ID(), err)
	}
	// ristretto applies writes asynchronously
	s.client.Wait()
	return nil
}

func (s *SessionStore) Create(ctx context.Context) (*consultation.Controller, error) {
	id := uuid.New().String()
	controller := consultation.NewController(id, s.stylist, s.log)
	if err := s.put(ctx, controller); err != nil {
		controller.Close()
		return nil, err
	}
	s.log.Info().Str("session", id).Msg("session created")
	return controller, nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (*consultation.Controller, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}
	controller, err := s.cache.Get(ctx, id)
	if err != nil || controller == nil {
		return nil, ErrSessionNotFound
	}
	if err := s.put(ctx, controller); err != nil {
		s.log.Warn().Err(err).Str("session", id).Msg("failed to extend session")
	}
	return controller, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	controller, err := s.cache.Get(ctx, id)
	if err != nil || controller == nil {
		return ErrSessionNotFound
	}
	controller.Close()
	if err := s.cache.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	s.client.Wait()
	s.log.Info().Str("session", id).Msg("session deleted")
	return nil
}
