package models

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a transaction, category or template. The set is closed:
// every record is exactly one of expense, income or savings, and a category
// keeps its kind for its whole lifetime.
type Kind string

const (
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"
	KindSavings Kind = "savings"
)

// Kinds lists all valid kinds.
var Kinds = []Kind{KindExpense, KindIncome, KindSavings}

var ErrInvalidKind = errors.New("kind must be one of expense, income, savings")

// Valid reports whether k is one of the closed set of kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindExpense, KindIncome, KindSavings:
		return true
	}

	return false
}

// ParseKind parses a kind from user input, accepting any casing.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}

	return k, nil
}
