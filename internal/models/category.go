package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category groups transactions of one kind under a display name. Transactions
// reference categories by name+kind match only, so renaming a category is
// only complete once every matching transaction has been rewritten.
type Category struct {
	ID        string              `json:"id" gorm:"primaryKey"`
	Name      string              `json:"name"`
	Kind      Kind                `json:"type" gorm:"column:type"`
	Budget    decimal.NullDecimal `json:"budget" gorm:"type:DECIMAL(20,8)"`
	Color     string              `json:"color"`
	IsDefault bool                `json:"is_default" gorm:"column:is_default"`

	// UsageCount is a cached counter, seeded when the category is first
	// referenced and accumulated on merge. The authoritative count is always
	// computed from the transactions table.
	UsageCount int64 `json:"usage_count" gorm:"column:usage_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Category) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	return nil
}

// CategoryWithSpending is a category decorated with the values derived from
// the transactions that currently match it by name and kind.
type CategoryWithSpending struct {
	Category
	Spending         decimal.Decimal `json:"spending"`
	TransactionCount int             `json:"transaction_count"`
	LastUsed         *time.Time      `json:"last_used,omitempty"`
}
