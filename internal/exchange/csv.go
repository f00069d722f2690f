// Package exchange implements CSV export and import of transactions.
//
// The format is the one the product has always used: the columns
// Date,Type,Category,Amount,Notes with RFC 4180 quoting, dates as
// YYYY-MM-DD. Import is forgiving: invalid rows are skipped and counted, not
// fatal.
package exchange

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fintrack-app/backend/internal/models"
)

const dateLayout = "2006-01-02"

var header = []string{"Date", "Type", "Category", "Amount", "Notes"}

var (
	ErrMissingHeader = errors.New("the header row must contain at least Date, Type, Category and Amount")
	ErrEmptyFile     = errors.New("the file contains no data")
)

// Filename returns the download filename for an export started at now.
func Filename(now time.Time) string {
	return fmt.Sprintf("fintrack-expenses-%s.csv", now.Format(dateLayout))
}

// Export writes the transactions as CSV.
func Export(w io.Writer, transactions []models.Transaction) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(header); err != nil {
		return err
	}

	for _, t := range transactions {
		row := []string{
			t.Date.In(time.UTC).Format(dateLayout),
			string(t.Kind),
			t.Category,
			t.Amount.String(),
			t.Notes,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// TransactionAdder is the write surface the importer needs. Rows are inserted
// without touching the category roster; the roster is seeded once per unseen
// name after the batch.
type TransactionAdder interface {
	AddImported(ctx context.Context, t models.Transaction) (models.Transaction, error)
	SeedCategory(ctx context.Context, name string, kind models.Kind)
}

// Result summarizes an import run.
type Result struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Reasons  []string `json:"reasons,omitempty"` // one entry per skipped row
}

// Importer parses transaction CSVs and inserts the valid rows one at a time,
// pausing between rows so a large file does not overwhelm the backend.
type Importer struct {
	transactions TransactionAdder
	delay        time.Duration
	sleep        func(context.Context, time.Duration) error
}

// Option configures an Importer.
type Option func(*Importer)

// WithDelay sets the pause between row inserts.
func WithDelay(d time.Duration) Option {
	return func(i *Importer) {
		i.delay = d
	}
}

// WithSleep replaces the sleep function, mainly for tests.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(i *Importer) {
		i.sleep = sleep
	}
}

func NewImporter(transactions TransactionAdder, options ...Option) *Importer {
	i := &Importer{
		transactions: transactions,
		delay:        100 * time.Millisecond,
		sleep: func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		},
	}

	for _, option := range options {
		option(i)
	}

	return i
}

// columns maps header names to their position. Notes is optional.
type columns struct {
	date, kind, category, amount, notes int
}

func parseHeader(row []string) (columns, error) {
	cols := columns{date: -1, kind: -1, category: -1, amount: -1, notes: -1}

	for i, field := range row {
		switch strings.ToLower(strings.TrimSpace(field)) {
		case "date":
			cols.date = i
		case "type":
			cols.kind = i
		case "category":
			cols.category = i
		case "amount":
			cols.amount = i
		case "notes":
			cols.notes = i
		}
	}

	if cols.date < 0 || cols.kind < 0 || cols.category < 0 || cols.amount < 0 {
		return columns{}, ErrMissingHeader
	}

	return cols, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if date, err := time.Parse(dateLayout, s); err == nil {
		return date, nil
	}

	return time.Parse(time.RFC3339, s)
}

// parseRow validates one data row. Every rejection reason mirrors a skip
// rule: unknown type, empty category, non-positive or non-numeric amount,
// unparseable date.
func parseRow(cols columns, row []string) (models.Transaction, error) {
	field := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	kind, err := models.ParseKind(field(cols.kind))
	if err != nil {
		return models.Transaction{}, err
	}

	category := field(cols.category)
	if category == "" {
		return models.Transaction{}, errors.New("category is empty")
	}

	amount, err := decimal.NewFromString(field(cols.amount))
	if err != nil {
		return models.Transaction{}, fmt.Errorf("amount %q is not a number", field(cols.amount))
	}
	if !amount.IsPositive() {
		return models.Transaction{}, fmt.Errorf("amount %s is not positive", amount)
	}

	date, err := parseDate(field(cols.date))
	if err != nil {
		return models.Transaction{}, fmt.Errorf("date %q could not be parsed", field(cols.date))
	}

	return models.Transaction{
		Date:     date.In(time.UTC),
		Kind:     kind,
		Category: category,
		Amount:   amount,
		Notes:    field(cols.notes),
	}, nil
}

// Import reads CSV data and inserts all valid rows. Invalid rows are counted
// as skipped with their reason; they never abort the batch. An error is only
// returned when the file itself is unusable or an insert fails.
func (i *Importer) Import(ctx context.Context, r io.Reader) (Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headerRow, err := reader.Read()
	if err != nil {
		return Result{}, ErrEmptyFile
	}

	cols, err := parseHeader(headerRow)
	if err != nil {
		return Result{}, err
	}

	type pair struct {
		name string
		kind models.Kind
	}

	var result Result
	var names []pair
	seen := make(map[pair]bool)

	line := 1
	for {
		line++

		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Skipped++
			result.Reasons = append(result.Reasons, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		transaction, err := parseRow(cols, row)
		if err != nil {
			result.Skipped++
			result.Reasons = append(result.Reasons, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		if result.Imported > 0 {
			if err := i.sleep(ctx, i.delay); err != nil {
				return result, err
			}
		}

		if _, err := i.transactions.AddImported(ctx, transaction); err != nil {
			return result, fmt.Errorf("line %d: %w", line, err)
		}
		result.Imported++

		p := pair{transaction.Category, transaction.Kind}
		if !seen[p] {
			seen[p] = true
			names = append(names, p)
		}
	}

	// The roster is seeded after the batch, once per distinct name, instead
	// of on every row insert.
	for _, p := range names {
		i.transactions.SeedCategory(ctx, p.name, p.kind)
	}

	log.Info().Int("imported", result.Imported).Int("skipped", result.Skipped).Msg("CSV import finished")
	return result, nil
}
