// Package local provides an embedded sqlite implementation of the remote
// Store and Auth contracts. It backs the dev mode that runs the product
// without a hosted backend and serves as the database for the test suites.
package local

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	go_sqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/fintrack-app/backend/internal/models"
	"github.com/fintrack-app/backend/internal/remote"
)

// ErrGeneral is returned for database problems where no useful detail can be
// given to the end user. The underlying error is logged instead.
var ErrGeneral = errors.New("there is a problem with the database connection, please retry later")

// Store is a remote.Store over an embedded sqlite database.
type Store struct {
	db *gorm.DB
}

// Open connects to the sqlite database at dsn and migrates the schema.
func Open(dsn string) (*Store, error) {
	config := &gorm.Config{
		// Set generated timestamps in UTC
		NowFunc: func() time.Time {
			return time.Now().In(time.UTC)
		},
		Logger: queryLogger{log: log.Logger},
	}

	db, err := gorm.Open(sqlite.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database object: %w", err)
	}

	// Get new connections after one hour
	sqlDB.SetConnMaxLifetime(time.Hour)

	// This is done to prevent SQLITE_BUSY errors
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(models.Transaction{}, models.Category{}, models.Template{})
	if err != nil {
		return nil, fmt.Errorf("error during DB migration: %w", err)
	}

	for _, callback := range []struct {
		name     string
		register func() error
	}{
		{"fintrack:after_query", func() error {
			return db.Callback().Query().After("*").Register("fintrack:after_query", generalCallback)
		}},
		{"fintrack:after_create", func() error {
			return db.Callback().Create().After("*").Register("fintrack:after_create", generalCallback)
		}},
		{"fintrack:after_update", func() error {
			return db.Callback().Update().After("*").Register("fintrack:after_update", generalCallback)
		}},
		{"fintrack:after_delete", func() error {
			return db.Callback().Delete().After("*").Register("fintrack:after_delete", generalCallback)
		}},
	} {
		if err := callback.register(); err != nil {
			return nil, fmt.Errorf("registering %s: %w", callback.name, err)
		}
	}

	return &Store{db: db}, nil
}

// generalCallback handles unspecified database errors.
//
// For these errors, we cannot provide the user with a helpful message.
// Instead, the error is logged and a general message is returned.
func generalCallback(db *gorm.DB) {
	if db.Error == nil {
		return
	}

	// "sql: database is closed" is hard-coded in the sql module, see
	// https://cs.opensource.google/go/go/+/master:src/database/sql/sql.go;l=1298;drc=0d018b49e33b1383dc0ae5cc968e800dffeeaf7d
	if db.Error.Error() == "sql: database is closed" || reflect.TypeOf(db.Error) == reflect.TypeOf(&go_sqlite.Error{}) {
		log.Error().Msgf("%T: %v", db.Error, db.Error.Error())
		db.Error = ErrGeneral
	}
}

// queryLogger adapts zerolog to gorm's logger interface. Statements are
// logged at debug level with their duration and row count; failed statements
// are errors, except for the not-found result gorm reports as one.
type queryLogger struct {
	log zerolog.Logger
}

func (l queryLogger) LogMode(gorm_logger.LogLevel) gorm_logger.Interface {
	return l
}

func (l queryLogger) Info(_ context.Context, format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l queryLogger) Warn(_ context.Context, format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l queryLogger) Error(_ context.Context, format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}

func (l queryLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	sql, rows := fc()

	event := l.log.Debug()
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		event = l.log.Error().Err(err)
	}

	event.Str("sql", sql).Int64("rows", rows).Dur("duration", time.Since(begin)).Msg("sql query")
}

// DB exposes the underlying connection so tests can close it to provoke
// database errors.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) scoped(table string, query remote.Query) *gorm.DB {
	q := s.db.Table(table)

	for _, f := range query.Filters {
		switch f.Op {
		case remote.OpEq:
			q = q.Where(fmt.Sprintf("%s = ?", f.Column), f.Value)
		case remote.OpNeq:
			q = q.Where(fmt.Sprintf("%s <> ?", f.Column), f.Value)
		case remote.OpLike:
			// The REST dialect uses "*" as the wildcard
			pattern := ""
			for _, r := range f.Value {
				if r == '*' {
					pattern += "%"
				} else {
					pattern += string(r)
				}
			}
			q = q.Where(fmt.Sprintf("%s LIKE ?", f.Column), pattern)
		case remote.OpGte:
			q = q.Where(fmt.Sprintf("%s >= ?", f.Column), f.Value)
		case remote.OpLte:
			q = q.Where(fmt.Sprintf("%s <= ?", f.Column), f.Value)
		}
	}

	return q
}

func (s *Store) Select(ctx context.Context, table string, query remote.Query, dest any) error {
	q := s.scoped(table, query).WithContext(ctx)

	if query.OrderBy != "" {
		direction := "ASC"
		if query.Descending {
			direction = "DESC"
		}
		q = q.Order(fmt.Sprintf("%s %s", query.OrderBy, direction))
	}
	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}

	if dest == nil {
		return nil
	}

	return q.Find(dest).Error
}

func (s *Store) Insert(ctx context.Context, table string, record any, dest any) error {
	err := s.db.WithContext(ctx).Table(table).Create(record).Error
	if err != nil {
		return err
	}

	if dest != nil {
		assign(dest, record)
	}

	return nil
}

func (s *Store) Update(ctx context.Context, table string, query remote.Query, patch any, dest any) error {
	err := s.scoped(table, query).WithContext(ctx).Updates(patch).Error
	if err != nil {
		return err
	}

	if dest != nil {
		err := s.scoped(table, query).WithContext(ctx).Take(dest).Error
		// The hosted backend returns an empty representation for a mutation
		// matching no rows; mirror that instead of failing.
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}

		return err
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, table string, query remote.Query) error {
	return s.scoped(table, query).WithContext(ctx).Delete(nil).Error
}

// assign copies the created record into dest when both are pointers to the
// same type. The embedded store mutates the record in place (identifier,
// timestamps), so this mirrors the representation the hosted backend returns.
func assign(dest, record any) {
	dv := reflect.ValueOf(dest)
	rv := reflect.ValueOf(record)
	if dv.Kind() != reflect.Pointer || rv.Kind() != reflect.Pointer {
		return
	}
	if dv.Elem().Type() != rv.Elem().Type() || !dv.Elem().CanSet() {
		return
	}

	dv.Elem().Set(rv.Elem())
}

// Auth is a remote.Auth that always reports a valid long-lived session. Dev
// mode has no auth provider to talk to.
type Auth struct{}

func (Auth) Session(_ context.Context) (*remote.Session, error) {
	return &remote.Session{
		AccessToken: "local",
		UserID:      "local",
		// A year out, so the guard never tries to refresh
		ExpiresAt: time.Now().Add(365 * 24 * time.Hour).Unix(),
	}, nil
}

func (Auth) Refresh(_ context.Context, _ string) (*remote.Session, error) {
	return nil, nil
}
