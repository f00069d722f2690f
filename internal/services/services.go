// Package services implements the entity services on top of the remote
// store: transactions, categories with their consistency operations, and
// templates. Every service verifies the session before remote work, retries
// rate-limited calls through a shared executor, serves reads from a
// TTL-bounded cache and publishes change notifications on the bus.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/fintrack-app/backend/internal/events"
	"github.com/fintrack-app/backend/internal/models"
	"github.com/fintrack-app/backend/internal/remote"
	"github.com/fintrack-app/backend/internal/retry"
	"github.com/fintrack-app/backend/internal/session"
)

const (
	tableTransactions = "transactions"
	tableCategories   = "categories"
	tableTemplates    = "templates"
)

// Cache TTLs per entity type. After a local mutation the caches are
// invalidated regardless, so these only bound staleness for pure reads.
const (
	transactionsTTL = time.Minute
	categoriesTTL   = 30 * time.Second
	templatesTTL    = 5 * time.Minute
	recentTTL       = time.Minute
)

var (
	ErrNotFound            = errors.New("no resource matching your query")
	ErrNameRequired        = errors.New("a name must be set")
	ErrCategoryRequired    = errors.New("a category must be set")
	ErrAmountNotPositive   = errors.New("the amount must be greater than zero")
	ErrKindImmutable       = errors.New("the kind of a category cannot be changed")
	ErrReplacementRequired = errors.New("replacement category required: the category still has transactions")
	ErrKindMismatch        = errors.New("both categories must be of the same kind")
	ErrDefaultCategory     = errors.New("default categories cannot be deleted")
	ErrMergeSelf           = errors.New("a category cannot be merged into itself")

	// ErrPartialRename reports that the category record was updated but the
	// bulk rewrite of its transactions failed, leaving some transactions
	// pointing at the old name. There is no rollback; the caller must retry.
	ErrPartialRename = errors.New("category was renamed, but not all transactions could be reassigned")
)

// Dependencies are the collaborators shared by all entity services.
type Dependencies struct {
	Store    remote.Store
	Guard    *session.Guard
	Executor *retry.Executor
	Bus      *events.Bus

	// Clock defaults to time.Now. Tests inject a fake.
	Clock func() time.Time
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Executor == nil {
		d.Executor = retry.New()
	}
	if d.Bus == nil {
		d.Bus = events.NewBus()
	}

	return d
}

// TransactionLister is the read surface the category service needs to derive
// spending from transactions.
type TransactionLister interface {
	All(ctx context.Context) ([]models.Transaction, error)
}
