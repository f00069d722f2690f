package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction is a single income, expense or savings record. The category
// association is by name and kind, not by foreign key: a transaction belongs
// to whichever category currently carries the same name within the same kind.
type Transaction struct {
	ID       string          `json:"id" gorm:"primaryKey"`
	Date     time.Time       `json:"date"`
	Kind     Kind            `json:"type" gorm:"column:type"`
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount" gorm:"type:DECIMAL(20,8)"`
	Notes    string          `json:"notes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns the identifier. The hosted store assigns identifiers
// itself; this hook only runs when the embedded store acts as the server.
func (t *Transaction) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	return nil
}

// AfterFind updates the timestamps to use UTC as
// timezone, not +0000. Yes, this is different.
func (t *Transaction) AfterFind(_ *gorm.DB) error {
	t.Date = t.Date.In(time.UTC)
	return nil
}

// BeforeSave sets the timezone for the Date to UTC.
func (t *Transaction) BeforeSave(_ *gorm.DB) error {
	if t.Date.IsZero() {
		t.Date = time.Now().In(time.UTC)
	} else {
		t.Date = t.Date.In(time.UTC)
	}

	return nil
}
