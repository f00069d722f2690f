// Package remote defines the contract for the hosted data and auth backend.
//
// The backend is only ever reached through the Store and Auth interfaces so
// that the service layer does not care whether it is talking to the hosted
// HTTP API or to the embedded sqlite store used for dev mode and tests.
package remote

import (
	"context"
	"time"
)

// Op is a filter operator in the dialect of the hosted REST API.
type Op string

const (
	OpEq   Op = "eq"
	OpNeq  Op = "neq"
	OpLike Op = "like"
	OpGte  Op = "gte"
	OpLte  Op = "lte"
)

// Filter restricts a query to rows where the column matches the value under
// the given operator. OpLike values use "*" as the wildcard.
type Filter struct {
	Column string
	Op     Op
	Value  string
}

// Query describes a table read or the row set affected by a mutation.
type Query struct {
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// Where starts a query with a single equality filter.
func Where(column, value string) Query {
	return Query{}.Eq(column, value)
}

// Eq appends an equality filter.
func (q Query) Eq(column, value string) Query {
	q.Filters = append(q.Filters, Filter{Column: column, Op: OpEq, Value: value})
	return q
}

// Match appends a filter with an explicit operator.
func (q Query) Match(column string, op Op, value string) Query {
	q.Filters = append(q.Filters, Filter{Column: column, Op: op, Value: value})
	return q
}

// Order sets the ordering column.
func (q Query) Order(column string, descending bool) Query {
	q.OrderBy = column
	q.Descending = descending
	return q
}

// Take limits the number of rows returned.
func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

// Store is the table-level CRUD surface of the remote backend.
//
// Select and the mutation results are decoded into dest, which must be a
// pointer (to a slice for Select, to a single record for mutations). A nil
// dest discards the response.
type Store interface {
	Select(ctx context.Context, table string, query Query, dest any) error
	Insert(ctx context.Context, table string, record any, dest any) error
	Update(ctx context.Context, table string, query Query, patch any, dest any) error
	Delete(ctx context.Context, table string, query Query) error
}

// Session is an authenticated session issued by the remote auth provider.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"` // seconds since epoch
	UserID       string `json:"user_id"`
}

// Expired reports whether the session's expiry timestamp has passed.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt != 0 && now.Unix() >= s.ExpiresAt
}

// Auth is the session surface of the remote backend.
//
// Session returns the current session, or nil without error when the caller
// has none. Refresh trades a refresh token for a new session; it returns nil
// without error when the provider rejects the token.
type Auth interface {
	Session(ctx context.Context) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
}
