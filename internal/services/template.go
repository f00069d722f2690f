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

// TemplateService is the CRUD surface for transaction templates. Templates
// are pure convenience data: no derived fields, no cross-entity consistency.
type TemplateService struct {
	store remote.Store
	guard *session.Guard
	exec  *retry.Executor
	bus   *events.Bus
	clock func() time.Time

	cache *cache.Cache[[]models.Template]
}

func NewTemplateService(deps Dependencies) *TemplateService {
	deps = deps.withDefaults()

	return &TemplateService{
		store: deps.Store,
		guard: deps.Guard,
		exec:  deps.Executor,
		bus:   deps.Bus,
		clock: deps.Clock,
		cache: cache.New[[]models.Template]("templates", templatesTTL, deps.Clock),
	}
}

// All returns all templates, ordered by name.
func (s *TemplateService) All(ctx context.Context) ([]models.Template, error) {
	if err := s.guard.Verify(ctx); err != nil {
		return nil, err
	}

	if templates, ok := s.cache.Get(); ok {
		return templates, nil
	}

	version := s.cache.Version()

	var templates []models.Template
	err := s.exec.Do(ctx, "templates.select", func() error {
		templates = nil
		return s.store.Select(ctx, tableTemplates, remote.Query{}.Order("name", false), &templates)
	})
	if err != nil {
		if last, ok := s.cache.Last(); ok {
			log.Warn().Err(err).Msg("templates read failed, serving last known data")
			return last, nil
		}

		return nil, err
	}

	s.cache.SetVersioned(version, templates)
	return templates, nil
}

// Defaults returns the templates surfaced for quick entry.
func (s *TemplateService) Defaults(ctx context.Context) ([]models.Template, error) {
	templates, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	defaults := make([]models.Template, 0, len(templates))
	for _, t := range templates {
		if t.IsDefault {
			defaults = append(defaults, t)
		}
	}

	return defaults, nil
}

func (s *TemplateService) validate(t models.Template) error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrNameRequired
	}
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

// Create adds a template.
func (s *TemplateService) Create(ctx context.Context, t models.Template) (models.Template, error) {
	if err := s.guard.Verify(ctx); err != nil {
		return models.Template{}, err
	}

	t.Name = strings.TrimSpace(t.Name)
	t.Category = strings.TrimSpace(t.Category)
	if err := s.validate(t); err != nil {
		return models.Template{}, err
	}

	now := s.clock().In(time.UTC)
	t.ID = uuid.NewString()
	t.CreatedAt = now
	t.UpdatedAt = now

	err := s.exec.Do(ctx, "templates.insert", func() error {
		return s.store.Insert(ctx, tableTemplates, &t, &t)
	})
	if err != nil {
		return models.Template{}, err
	}

	s.afterMutation(events.TopicTemplateCreated, t.Name)
	return t, nil
}

// Update replaces the full record of the template with the given ID.
func (s *TemplateService) Update(ctx context.Context, id string, t models.Template) (models.Template, error) {
	if err := s.guard.Verify(ctx); err != nil {
		return models.Template{}, err
	}

	t.Name = strings.TrimSpace(t.Name)
	t.Category = strings.TrimSpace(t.Category)
	if err := s.validate(t); err != nil {
		return models.Template{}, err
	}

	patch := map[string]any{
		"name":       t.Name,
		"type":       string(t.Kind),
		"category":   t.Category,
		"amount":     t.Amount,
		"notes":      t.Notes,
		"is_default": t.IsDefault,
		"updated_at": s.clock().In(time.UTC),
	}

	var updated models.Template
	err := s.exec.Do(ctx, "templates.update", func() error {
		return s.store.Update(ctx, tableTemplates, remote.Where("id", id), patch, &updated)
	})
	if err != nil {
		return models.Template{}, err
	}
	if updated.ID == "" {
		return models.Template{}, fmt.Errorf("%w: no template with ID %s", ErrNotFound, id)
	}

	s.afterMutation(events.TopicTemplateUpdated, updated.Name)
	return updated, nil
}

// Delete removes the template.
func (s *TemplateService) Delete(ctx context.Context, id string) error {
	if err := s.guard.Verify(ctx); err != nil {
		return err
	}

	err := s.exec.Do(ctx, "templates.delete", func() error {
		return s.store.Delete(ctx, tableTemplates, remote.Where("id", id))
	})
	if err != nil {
		return err
	}

	s.afterMutation(events.TopicTemplateDeleted, "")
	return nil
}

func (s *TemplateService) afterMutation(topic, name string) {
	s.cache.Invalidate()
	s.bus.Publish(events.Event{Topic: topic, Name: name})
}
