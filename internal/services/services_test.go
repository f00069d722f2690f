package services_test

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/fintrack-app/backend/internal/events"
	"github.com/fintrack-app/backend/internal/models"
	"github.com/fintrack-app/backend/internal/remote"
	"github.com/fintrack-app/backend/internal/remote/local"
	"github.com/fintrack-app/backend/internal/retry"
	"github.com/fintrack-app/backend/internal/services"
	"github.com/fintrack-app/backend/internal/session"
	"github.com/fintrack-app/backend/test"
)

func requireDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// countingStore wraps a store, counting reads per table and optionally
// failing them to simulate an unreachable backend.
type countingStore struct {
	remote.Store

	selects map[string]int
	fail    error
}

func (s *countingStore) Select(ctx context.Context, table string, query remote.Query, dest any) error {
	if s.fail != nil {
		return s.fail
	}

	s.selects[table]++
	return s.Store.Select(ctx, table, query, dest)
}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time {
	return c.now
}

// TestSuiteEnv is the shared environment of the service suites: an embedded
// database, a fake clock and the full set of services wired together the way
// main does it.
type TestSuiteEnv struct {
	suite.Suite

	db    *local.Store
	store *countingStore
	clock *clock
	bus   *events.Bus

	transactions *services.TransactionService
	categories   *services.CategoryService
	templates    *services.TemplateService
}

func (suite *TestSuiteEnv) SetupTest() {
	db, err := local.Open(test.TmpFile(suite.T()))
	if err != nil {
		suite.FailNow("Database connection failed", err)
	}

	suite.db = db
	suite.store = &countingStore{Store: db, selects: map[string]int{}}
	suite.clock = &clock{now: time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC)}
	suite.bus = events.NewBus()

	deps := services.Dependencies{
		Store: suite.store,
		Guard: session.NewGuard(local.Auth{}, suite.clock.Now),
		Executor: retry.New(retry.WithSleep(func(context.Context, time.Duration) error {
			return nil
		})),
		Bus:   suite.bus,
		Clock: suite.clock.Now,
	}

	suite.transactions = services.NewTransactionService(deps)
	suite.categories = services.NewCategoryService(deps, suite.transactions)
	suite.templates = services.NewTemplateService(deps)
}

func (suite *TestSuiteEnv) addTransaction(category string, kind models.Kind, amount string, date time.Time) models.Transaction {
	t, err := suite.transactions.Add(context.Background(), models.Transaction{
		Date:     date,
		Kind:     kind,
		Category: category,
		Amount:   requireDecimal(amount),
	})
	suite.Require().NoError(err)

	return t
}

func (suite *TestSuiteEnv) createCategory(name string, kind models.Kind) models.Category {
	category, err := suite.categories.Create(context.Background(), models.Category{
		Name: name,
		Kind: kind,
	})
	suite.Require().NoError(err)

	return category
}

// storedCategory reads a category row directly from the database, bypassing
// the service and its cache.
func (suite *TestSuiteEnv) storedCategory(name string, kind models.Kind) (models.Category, bool) {
	var categories []models.Category
	query := remote.Where("name", name).Eq("type", string(kind))
	err := suite.db.Select(context.Background(), "categories", query, &categories)
	suite.Require().NoError(err)

	if len(categories) == 0 {
		return models.Category{}, false
	}

	return categories[0], true
}

// storedTransactions reads transaction rows directly from the database.
func (suite *TestSuiteEnv) storedTransactions(category string, kind models.Kind) []models.Transaction {
	var transactions []models.Transaction
	query := remote.Where("category", category).Eq("type", string(kind))
	err := suite.db.Select(context.Background(), "transactions", query, &transactions)
	suite.Require().NoError(err)

	return transactions
}
