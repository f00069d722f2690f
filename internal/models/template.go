package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Template is a reusable transaction preset for quick entry. Templates have
// no derived fields and no cross-entity consistency requirements.
type Template struct {
	ID        string          `json:"id" gorm:"primaryKey"`
	Name      string          `json:"name"`
	Kind      Kind            `json:"type" gorm:"column:type"`
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:DECIMAL(20,8)"`
	Notes     string          `json:"notes"`
	IsDefault bool            `json:"is_default" gorm:"column:is_default"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *Template) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	return nil
}
