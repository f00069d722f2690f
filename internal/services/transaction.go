package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fintrack-app/backend/internal/cache"
	"github.com/fintrack-app/backend/internal/events"
	"github.com/fintrack-app/backend/internal/models"
	"github.com/fintrack-app/backend/internal/remote"
	"github.com/fintrack-app/backend/internal/retry"
	"github.com/fintrack-app/backend/internal/session"
)

// TransactionService is the CRUD surface for transactions.
type TransactionService struct {
	store remote.Store
	guard *session.Guard
	exec  *retry.Executor
	bus   *events.Bus
	clock func() time.Time

	cache *cache.Cache[[]models.Transaction]
}

func NewTransactionService(deps Dependencies) *TransactionService {
	deps = deps.withDefaults()

	s := &TransactionService{
		store: deps.Store,
		guard: deps.Guard,
		exec:  deps.Executor,
		bus:   deps.Bus,
		clock: deps.Clock,
		cache: cache.New[[]models.Transaction]("transactions", transactionsTTL, deps.Clock),
	}

	// Category renames and reassignments rewrite transactions behind this
	// service's back, so the cache must go when one happens.
	deps.Bus.Subscribe(events.TopicCategoryUpdated, func(events.Event) {
		s.cache.Invalidate()
	})

	return s
}

// All returns all transactions of the user, newest first. Reads within the
// cache TTL are served locally; on a remote failure the last known data is
// returned when any exists.
func (s *TransactionService) All(ctx context.Context) ([]models.Transaction, error) {
	if err := s.guard.Verify(ctx); err != nil {
		return nil, err
	}

	if transactions, ok := s.cache.Get(); ok {
		return transactions, nil
	}

	version := s.cache.Version()

	var transactions []models.Transaction
	err := s.exec.Do(ctx, "transactions.select", func() error {
		transactions = nil
		return s.store.Select(ctx, tableTransactions, remote.Query{}.Order("date", true), &transactions)
	})
	if err != nil {
		if last, ok := s.cache.Last(); ok {
			log.Warn().Err(err).Msg("transactions read failed, serving last known data")
			return last, nil
		}

		return nil, err
	}

	s.cache.SetVersioned(version, transactions)
	return transactions, nil
}

func (s *TransactionService) validate(t models.Transaction) error {
	if !t.Kind.Valid() {
		return fmt.Errorf("%w, got %q", models.ErrInvalidKind, t.Kind)
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrCategoryRequired
	}
	if !t.Amount.IsPositive() {
		return ErrAmountNotPositive
	}

	return nil
}

// Add creates a transaction. The identifier is assigned by the store. When
// the transaction introduces a category name not yet known for its kind, the
// category roster is seeded with it.
func (s *TransactionService) Add(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	return s.add(ctx, t, true)
}

// AddImported inserts a transaction without touching the category roster.
// Bulk imports seed unseen names once after the whole batch instead of once
// per row.
func (s *TransactionService) AddImported(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	return s.add(ctx, t, false)
}

func (s *TransactionService) add(ctx context.Context, t models.Transaction, seedRoster bool) (models.Transaction, error) {
	if err := s.guard.Verify(ctx); err != nil {
		return models.Transaction{}, err
	}

	t.Category = strings.TrimSpace(t.Category)
	if err := s.validate(t); err != nil {
		return models.Transaction{}, err
	}

	now := s.clock().In(time.UTC)
	if t.Date.IsZero() {
		t.Date = now
	}
	t.CreatedAt = now
	t.UpdatedAt = now

	err := s.exec.Do(ctx, "transactions.insert", func() error {
		return s.store.Insert(ctx, tableTransactions, &t, &t)
	})
	if err != nil {
		return models.Transaction{}, err
	}

	if seedRoster {
		s.SeedCategory(ctx, t.Category, t.Kind)
	}
	s.afterMutation(t)

	return t, nil
}

// Update replaces the full record of the transaction with the given ID.
func (s *TransactionService) Update(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if err := s.guard.Verify(ctx); err != nil {
		return models.Transaction{}, err
	}

	if t.ID == "" {
		return models.Transaction{}, fmt.Errorf("%w: a transaction ID must be set", ErrNotFound)
	}

	t.Category = strings.TrimSpace(t.Category)
	if err := s.validate(t); err != nil {
		return models.Transaction{}, err
	}

	patch := map[string]any{
		"date":       t.Date.In(time.UTC),
		"type":       string(t.Kind),
		"category":   t.Category,
		"amount":     t.Amount,
		"notes":      t.Notes,
		"updated_at": s.clock().In(time.UTC),
	}

	var updated models.Transaction
	err := s.exec.Do(ctx, "transactions.update", func() error {
		return s.store.Update(ctx, tableTransactions, remote.Where("id", t.ID), patch, &updated)
	})
	if err != nil {
		return models.Transaction{}, err
	}
	if updated.ID == "" {
		return models.Transaction{}, fmt.Errorf("%w: no transaction with ID %s", ErrNotFound, t.ID)
	}

	s.SeedCategory(ctx, updated.Category, updated.Kind)
	s.afterMutation(updated)

	return updated, nil
}

// Delete removes the transaction permanently.
func (s *TransactionService) Delete(ctx context.Context, id string) error {
	if err := s.guard.Verify(ctx); err != nil {
		return err
	}

	err := s.exec.Do(ctx, "transactions.delete", func() error {
		return s.store.Delete(ctx, tableTransactions, remote.Where("id", id))
	})
	if err != nil {
		return err
	}

	s.afterMutation(models.Transaction{})
	return nil
}

func (s *TransactionService) afterMutation(t models.Transaction) {
	s.cache.Invalidate()
	s.bus.Publish(events.Event{
		Topic: events.TopicTransactionChanged,
		Kind:  string(t.Kind),
		Name:  t.Category,
	})
	s.bus.Publish(events.Event{Topic: events.TopicCategorySync})
}

// SeedCategory inserts a category row when none exists yet for the name and
// kind. This is how the category list was originally grown before a
// dedicated category table existed; failures are logged, not surfaced, since
// the transaction itself was already saved.
func (s *TransactionService) SeedCategory(ctx context.Context, name string, kind models.Kind) {
	query := remote.Where("name", name).Eq("type", string(kind)).Take(1)

	var existing []models.Category
	err := s.exec.Do(ctx, "categories.select", func() error {
		existing = nil
		return s.store.Select(ctx, tableCategories, query, &existing)
	})
	if err != nil {
		log.Warn().Err(err).Str("category", name).Msg("could not check category roster")
		return
	}
	if len(existing) > 0 {
		return
	}

	now := s.clock().In(time.UTC)
	category := models.Category{
		ID:         uuid.NewString(),
		Name:       name,
		Kind:       kind,
		UsageCount: 1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.exec.Do(ctx, "categories.insert", func() error {
		return s.store.Insert(ctx, tableCategories, &category, &category)
	})
	if err != nil {
		log.Warn().Err(err).Str("category", name).Msg("could not seed category roster")
	}
}
