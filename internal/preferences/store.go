package preferences

import (
	"context"
	"fmt"

	"github.com/teemow/inboxtriage/internal/logging"
	"github.com/teemow/inboxtriage/internal/storage"
)

// Store validates and persists the general and specific rankings.
type Store struct {
	backend storage.Store
	logger  logging.Logger
}

// NewStore creates a preference store on top of a storage backend.
func NewStore(backend storage.Store, logger logging.Logger) *Store {
	return &Store{backend: backend, logger: logging.OrDiscard(logger)}
}

// SubmitGeneral validates a general ranking, persists it together with the
// derived top preferences and returns those top preferences.
func (s *Store) SubmitGeneral(ctx context.Context, ranking Ranking) ([]Topic, error) {
	if err := Validate(TierGeneral, ranking, GeneralTopics); err != nil {
		s.logger.Warn("rejected general preferences", logging.Tier(string(TierGeneral)), logging.Err(err))
		return nil, err
	}

	top := ranking.Top(TopCount)

	// Top is written first. The two writes are not atomic together.
	if err := s.backend.Save(ctx, storage.KeyTopPreferences, top); err != nil {
		return nil, fmt.Errorf("failed to save top preferences: %w", err)
	}
	if err := s.backend.Save(ctx, storage.KeyGeneralPreferences, ranking); err != nil {
		return nil, fmt.Errorf("failed to save general preferences: %w", err)
	}

	s.logger.Info("saved general preferences", logging.Tier(string(TierGeneral)), "top_preferences", top)
	return top, nil
}

// SubmitSpecific validates and persists a specific ranking. When a topic
// catalog has been saved through SaveSpecificTopics the ranking must cover
// exactly that catalog.
func (s *Store) SubmitSpecific(ctx context.Context, ranking Ranking) error {
	catalog, err := s.SpecificTopics(ctx)
	if err != nil && !storage.IsNotFound(err) {
		return fmt.Errorf("failed to load specific topics: %w", err)
	}
	if len(Distinct(catalog)) != SpecificCount {
		// A catalog without exactly SpecificCount distinct topics cannot be
		// ranked; fall back to the count check.
		catalog = nil
	}

	if err := Validate(TierSpecific, ranking, catalog); err != nil {
		s.logger.Warn("rejected specific preferences", logging.Tier(string(TierSpecific)), logging.Err(err))
		return err
	}

	if err := s.backend.Save(ctx, storage.KeySpecificPreferences, ranking); err != nil {
		return fmt.Errorf("failed to save specific preferences: %w", err)
	}

	s.logger.Info("saved specific preferences", logging.Tier(string(TierSpecific)), "count", len(ranking))
	return nil
}

// General returns the persisted general ranking.
func (s *Store) General(ctx context.Context) (Ranking, error) {
	var r Ranking
	if err := s.backend.Load(ctx, storage.KeyGeneralPreferences, &r); err != nil {
		return nil, err
	}
	return r, nil
}

// Specific returns the persisted specific ranking.
func (s *Store) Specific(ctx context.Context) (Ranking, error) {
	var r Ranking
	if err := s.backend.Load(ctx, storage.KeySpecificPreferences, &r); err != nil {
		return nil, err
	}
	return r, nil
}

// TopPreferences returns the top general topics saved by the last
// successful SubmitGeneral.
func (s *Store) TopPreferences(ctx context.Context) ([]Topic, error) {
	var top []Topic
	if err := s.backend.Load(ctx, storage.KeyTopPreferences, &top); err != nil {
		return nil, err
	}
	return top, nil
}

// SpecificTopics returns the persisted catalog of suggested specific topics.
func (s *Store) SpecificTopics(ctx context.Context) ([]Topic, error) {
	var topics []Topic
	if err := s.backend.Load(ctx, storage.KeySpecificTopics, &topics); err != nil {
		return nil, err
	}
	return topics, nil
}

// SaveSpecificTopics persists a catalog of suggested specific topics.
// Repeated topics are saved once.
func (s *Store) SaveSpecificTopics(ctx context.Context, topics []Topic) error {
	topics = Distinct(topics)
	if err := s.backend.Save(ctx, storage.KeySpecificTopics, topics); err != nil {
		return fmt.Errorf("failed to save specific topics: %w", err)
	}
	s.logger.Debug("saved specific topics", "count", len(topics))
	return nil
}
