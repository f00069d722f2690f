package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"

	"github.com/fintrack-app/backend/internal/cache"
	"github.com/fintrack-app/backend/internal/events"
	"github.com/fintrack-app/backend/internal/models"
	"github.com/fintrack-app/backend/internal/remote"
	"github.com/fintrack-app/backend/internal/retry"
	"github.com/fintrack-app/backend/internal/session"
)

// CategoryService owns the category table and the operations that must keep
// it consistent with the transactions that reference categories by name and
// kind: rename propagation, delete with reassignment, and merge.
//
// The store exposes no multi-statement transactions, so these operations are
// sequences of single writes ordered to keep the window of inconsistency as
// small as possible. A failure between the writes is surfaced, not rolled
// back.
type CategoryService struct {
	store        remote.Store
	guard        *session.Guard
	exec         *retry.Executor
	bus          *events.Bus
	clock        func() time.Time
	transactions TransactionLister

	cache  *cache.Cache[[]models.Category]
	recent *cache.Cache[[]models.CategoryWithSpending]
}

func NewCategoryService(deps Dependencies, transactions TransactionLister) *CategoryService {
	deps = deps.withDefaults()

	s := &CategoryService{
		store:        deps.Store,
		guard:        deps.Guard,
		exec:         deps.Executor,
		bus:          deps.Bus,
		clock:        deps.Clock,
		transactions: transactions,
		cache:        cache.New[[]models.Category]("categories", categoriesTTL, deps.Clock),
		recent:       cache.New[[]models.CategoryWithSpending]("recent_categories", recentTTL, deps.Clock),
	}

	// Transaction mutations change spending and usage, which the recent
	// ranking is derived from.
	deps.Bus.Subscribe(events.TopicTransactionChanged, func(events.Event) {
		s.recent.Invalidate()
		s.cache.Invalidate()
	})

	return s
}

// All returns all categories, ordered by name. Reads within the cache TTL
// are served locally; on a remote failure the last known data is returned
// when any exists.
func (s *CategoryService) All(ctx context.Context) ([]models.Category, error) {
	if err := s.guard.Verify(ctx); err != nil {
		return nil, err
	}

	if categories, ok := s.cache.Get(); ok {
		return categories, nil
	}

	version := s.cache.Version()

	var categories []models.Category
	err := s.exec.Do(ctx, "categories.select", func() error {
		categories = nil
		return s.store.Select(ctx, tableCategories, remote.Query{}.Order("name", false), &categories)
	})
	if err != nil {
		if last, ok := s.cache.Last(); ok {
			log.Warn().Err(err).Msg("categories read failed, serving last known data")
			return last, nil
		}

		return nil, err
	}

	s.cache.SetVersioned(version, categories)
	return categories, nil
}

// AllWithSpending decorates every category with the spending, transaction
// count and last-used timestamp derived from the transactions currently
// matching it by name and kind. The scan is O(categories x transactions),
// which is fine at personal finance volumes.
func (s *CategoryService) AllWithSpending(ctx context.Context) ([]models.CategoryWithSpending, error) {
	categories, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	transactions, err := s.transactions.All(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]models.CategoryWithSpending, 0, len(categories))
	for _, category := range categories {
		entry := models.CategoryWithSpending{Category: category}

		for _, t := range transactions {
			if t.Category != category.Name || t.Kind != category.Kind {
				continue
			}

			entry.Spending = entry.Spending.Add(t.Amount)
			entry.TransactionCount++
			if entry.LastUsed == nil || t.Date.After(*entry.LastUsed) {
				date := t.Date
				entry.LastUsed = &date
			}
		}

		result = append(result, entry)
	}

	return result, nil
}

// Create adds a new category of the given kind.
func (s *CategoryService) Create(ctx context.Context, category models.Category) (models.Category, error) {
	if err := s.guard.Verify(ctx); err != nil {
		return models.Category{}, err
	}

	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return models.Category{}, ErrNameRequired
	}
	if !category.Kind.Valid() {
		return models.Category{}, fmt.Errorf("%w, got %q", models.ErrInvalidKind, category.Kind)
	}

	now := s.clock().In(time.UTC)
	category.ID = uuid.NewString()
	category.UsageCount = 0
	category.CreatedAt = now
	category.UpdatedAt = now

	err := s.exec.Do(ctx, "categories.insert", func() error {
		return s.store.Insert(ctx, tableCategories, &category, &category)
	})
	if err != nil {
		return models.Category{}, err
	}

	s.invalidate()
	s.publishUpdated(category.Name, "", category.Kind)

	return category, nil
}

// Update modifies the category. When the name changes, every transaction
// still carrying the old name within the same kind is rewritten to the new
// name. The two writes are not atomic: when the rewrite fails, the category
// keeps its new name and the error wraps ErrPartialRename.
func (s *CategoryService) Update(ctx context.Context, id string, update models.Category) (models.Category, error) {
	if err := s.guard.Verify(ctx); err != nil {
		return models.Category{}, err
	}

	current, err := s.byID(ctx, id)
	if err != nil {
		return models.Category{}, err
	}

	if update.Kind != "" && update.Kind != current.Kind {
		return models.Category{}, ErrKindImmutable
	}

	name := strings.TrimSpace(update.Name)
	if name == "" {
		name = current.Name
	}

	// Absent fields keep their current value, like the name above. A patch
	// only carries the columns the caller actually set.
	patch := map[string]any{
		"name":       name,
		"updated_at": s.clock().In(time.UTC),
	}
	if update.Budget.Valid {
		patch["budget"] = update.Budget
	}
	if update.Color != "" {
		patch["color"] = update.Color
	}

	var updated models.Category
	err = s.exec.Do(ctx, "categories.update", func() error {
		return s.store.Update(ctx, tableCategories, remote.Where("id", id), patch, &updated)
	})
	if err != nil {
		return models.Category{}, err
	}

	if name != current.Name {
		if err := s.reassign(ctx, current.Name, name, current.Kind); err != nil {
			s.invalidate()
			return updated, fmt.Errorf("%w: %v", ErrPartialRename, err)
		}
	}

	s.invalidate()
	s.publishUpdated(name, current.Name, current.Kind)

	return updated, nil
}

// Delete removes a category. A category that still has transactions can only
// be deleted when a replacement category of the same kind is supplied; its
// transactions are reassigned to the replacement before the category row is
// deleted. Default categories cannot be deleted.
func (s *CategoryService) Delete(ctx context.Context, id, replacementID string) error {
	if err := s.guard.Verify(ctx); err != nil {
		return err
	}

	category, err := s.byID(ctx, id)
	if err != nil {
		return err
	}

	if category.IsDefault {
		return ErrDefaultCategory
	}

	// Validation happens before any mutation: check for transactions and the
	// replacement's kind first.
	count, err := s.transactionCount(ctx, category)
	if err != nil {
		return err
	}

	var replacement models.Category
	if count > 0 {
		if replacementID == "" {
			return ErrReplacementRequired
		}

		replacement, err = s.byID(ctx, replacementID)
		if err != nil {
			return err
		}
		if replacement.Kind != category.Kind {
			return ErrKindMismatch
		}
	}

	// Reassign before deleting the row so the window in which transactions
	// reference a missing category name stays as small as possible.
	if count > 0 {
		if err := s.reassign(ctx, category.Name, replacement.Name, category.Kind); err != nil {
			return err
		}
	}

	err = s.exec.Do(ctx, "categories.delete", func() error {
		return s.store.Delete(ctx, tableCategories, remote.Where("id", id))
	})
	if err != nil {
		return err
	}

	s.invalidate()
	s.publishUpdated(category.Name, "", category.Kind)

	return nil
}

// Merge moves all of the source's transactions to the target, accumulates
// the source's usage counter into the target, then deletes the source.
// Cross-kind merges are rejected.
func (s *CategoryService) Merge(ctx context.Context, sourceID, targetID string) error {
	if err := s.guard.Verify(ctx); err != nil {
		return err
	}

	if sourceID == targetID {
		return ErrMergeSelf
	}

	source, err := s.byID(ctx, sourceID)
	if err != nil {
		return err
	}

	target, err := s.byID(ctx, targetID)
	if err != nil {
		return err
	}

	if source.Kind != target.Kind {
		return ErrKindMismatch
	}

	// Reassignment must complete before the source is deleted, otherwise the
	// transactions would be orphaned.
	if err := s.reassign(ctx, source.Name, target.Name, source.Kind); err != nil {
		return err
	}

	patch := map[string]any{
		"usage_count": target.UsageCount + source.UsageCount,
		"updated_at":  s.clock().In(time.UTC),
	}
	err = s.exec.Do(ctx, "categories.update", func() error {
		return s.store.Update(ctx, tableCategories, remote.Where("id", targetID), patch, nil)
	})
	if err != nil {
		return err
	}

	err = s.exec.Do(ctx, "categories.delete", func() error {
		return s.store.Delete(ctx, tableCategories, remote.Where("id", sourceID))
	})
	if err != nil {
		return err
	}

	s.invalidate()
	s.publishUpdated(target.Name, source.Name, source.Kind)

	return nil
}

// RecentlyUsed ranks categories for quick entry: only categories with
// transactions count, categories used in the current calendar month come
// first when such data exists, and within that the most recently used wins,
// falling back to the highest transaction count.
func (s *CategoryService) RecentlyUsed(ctx context.Context, limit int) ([]models.CategoryWithSpending, error) {
	if err := s.guard.Verify(ctx); err != nil {
		return nil, err
	}

	if cached, ok := s.recent.Get(); ok {
		return clip(cached, limit), nil
	}

	version := s.recent.Version()

	withSpending, err := s.AllWithSpending(ctx)
	if err != nil {
		return nil, err
	}

	used := make([]models.CategoryWithSpending, 0, len(withSpending))
	for _, entry := range withSpending {
		if entry.TransactionCount > 0 {
			used = append(used, entry)
		}
	}

	// Restrict to the current calendar month when it has any activity.
	now := s.clock().In(time.UTC)
	monthNames := s.currentMonthNames(ctx, now)
	if len(monthNames) > 0 {
		thisMonth := make([]models.CategoryWithSpending, 0, len(used))
		for _, entry := range used {
			if slices.Contains(monthNames, string(entry.Kind)+"\x00"+entry.Name) {
				thisMonth = append(thisMonth, entry)
			}
		}
		if len(thisMonth) > 0 {
			used = thisMonth
		}
	}

	sort.SliceStable(used, func(i, j int) bool {
		a, b := used[i], used[j]
		switch {
		case a.LastUsed != nil && b.LastUsed != nil && !a.LastUsed.Equal(*b.LastUsed):
			return a.LastUsed.After(*b.LastUsed)
		case (a.LastUsed != nil) != (b.LastUsed != nil):
			return a.LastUsed != nil
		default:
			return a.TransactionCount > b.TransactionCount
		}
	})

	s.recent.SetVersioned(version, used)
	return clip(used, limit), nil
}

func clip(entries []models.CategoryWithSpending, limit int) []models.CategoryWithSpending {
	if limit > 0 && len(entries) > limit {
		return entries[:limit]
	}

	return entries
}

// currentMonthNames returns kind+name keys of categories referenced by
// transactions in the calendar month of now. Errors only degrade the
// ranking, so they are swallowed.
func (s *CategoryService) currentMonthNames(ctx context.Context, now time.Time) []string {
	transactions, err := s.transactions.All(ctx)
	if err != nil {
		return nil
	}

	var names []string
	for _, t := range transactions {
		date := t.Date.In(time.UTC)
		if date.Year() != now.Year() || date.Month() != now.Month() {
			continue
		}

		key := string(t.Kind) + "\x00" + t.Category
		if !slices.Contains(names, key) {
			names = append(names, key)
		}
	}

	return names
}

// byID fetches a single category.
func (s *CategoryService) byID(ctx context.Context, id string) (models.Category, error) {
	var categories []models.Category
	err := s.exec.Do(ctx, "categories.select", func() error {
		categories = nil
		return s.store.Select(ctx, tableCategories, remote.Where("id", id).Take(1), &categories)
	})
	if err != nil {
		return models.Category{}, err
	}
	if len(categories) == 0 {
		return models.Category{}, fmt.Errorf("%w: no category with ID %s", ErrNotFound, id)
	}

	return categories[0], nil
}

// transactionCount counts the transactions matching the category by name and
// kind directly against the store: the decision whether a delete needs a
// replacement must not depend on a possibly stale cache.
func (s *CategoryService) transactionCount(ctx context.Context, category models.Category) (int, error) {
	query := remote.Where("category", category.Name).Eq("type", string(category.Kind))

	var transactions []models.Transaction
	err := s.exec.Do(ctx, "transactions.select", func() error {
		transactions = nil
		return s.store.Select(ctx, tableTransactions, query, &transactions)
	})
	if err != nil {
		return 0, err
	}

	return len(transactions), nil
}

// reassign rewrites every transaction carrying oldName within the kind to
// newName. This is the rename propagation that keeps the name+kind
// association intact.
func (s *CategoryService) reassign(ctx context.Context, oldName, newName string, kind models.Kind) error {
	patch := map[string]any{
		"category":   newName,
		"updated_at": s.clock().In(time.UTC),
	}
	query := remote.Where("category", oldName).Eq("type", string(kind))

	return s.exec.Do(ctx, "transactions.update", func() error {
		return s.store.Update(ctx, tableTransactions, query, patch, nil)
	})
}

func (s *CategoryService) invalidate() {
	s.cache.Invalidate()
	s.recent.Invalidate()
}

func (s *CategoryService) publishUpdated(name, oldName string, kind models.Kind) {
	s.bus.Publish(events.Event{
		Topic:   events.TopicCategoryUpdated,
		Kind:    string(kind),
		Name:    name,
		OldName: oldName,
	})
	s.bus.Publish(events.Event{Topic: events.TopicCategorySync})
}
