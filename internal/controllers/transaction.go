package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/fintrack-app/backend/internal/httperror"
	"github.com/fintrack-app/backend/internal/httputil"
	"github.com/fintrack-app/backend/internal/models"
)

// RegisterTransactionRoutes registers the routes for transactions with the
// RouterGroup that is passed.
func (co Controller) RegisterTransactionRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", httputil.OptionsGetPost)
		r.GET("", co.GetTransactions)
		r.POST("", co.CreateTransaction)
	}

	// Transaction with ID
	{
		r.OPTIONS("/:id", httputil.OptionsPatchDelete)
		r.PATCH("/:id", co.UpdateTransaction)
		r.DELETE("/:id", co.DeleteTransaction)
	}
}

// TransactionEditable represents all user configurable parameters
type TransactionEditable struct {
	Date     time.Time       `json:"date" example:"2024-03-12T00:00:00Z"`
	Kind     string          `json:"type" example:"expense"`
	Category string          `json:"category" example:"Groceries"`
	Amount   decimal.Decimal `json:"amount" example:"14.50"`
	Notes    string          `json:"notes" example:"Farmer's market"`
}

func (editable TransactionEditable) model() models.Transaction {
	return models.Transaction{
		Date:     editable.Date,
		Kind:     models.Kind(editable.Kind),
		Category: editable.Category,
		Amount:   editable.Amount,
		Notes:    editable.Notes,
	}
}

// Transaction is the API resource: the record plus the rendered amount.
type Transaction struct {
	models.Transaction
	AmountDisplay string `json:"amount_display" example:"$14.50"`
}

func (co Controller) newTransaction(model models.Transaction) Transaction {
	return Transaction{
		Transaction:   model,
		AmountDisplay: co.Money.Format(model.Amount),
	}
}

type TransactionResponse struct {
	Data  *Transaction `json:"data"`
	Error *string      `json:"error"`
}

type TransactionListResponse struct {
	Data  []Transaction `json:"data"`
	Error *string       `json:"error"`
}

type TransactionQueryFilter struct {
	Kind     string `form:"type"`     // By kind
	Category string `form:"category"` // By exact category name
	Month    string `form:"month"`    // By calendar month, YYYY-MM
}

// GetTransactions returns the transactions of the user, newest first.
// Filtering happens after the read so the cache keeps serving all views.
func (co Controller) GetTransactions(c *gin.Context) {
	var filter TransactionQueryFilter
	_ = c.Bind(&filter)

	transactions, err := co.Transactions.All(c.Request.Context())
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TransactionListResponse{Error: &s})
		return
	}

	data := make([]Transaction, 0, len(transactions))
	for _, t := range transactions {
		if filter.Kind != "" && string(t.Kind) != filter.Kind {
			continue
		}
		if filter.Category != "" && t.Category != filter.Category {
			continue
		}
		if filter.Month != "" && t.Date.In(time.UTC).Format("2006-01") != filter.Month {
			continue
		}

		data = append(data, co.newTransaction(t))
	}

	c.JSON(http.StatusOK, TransactionListResponse{Data: data})
}

// CreateTransaction creates a new transaction.
func (co Controller) CreateTransaction(c *gin.Context) {
	var editable TransactionEditable
	if err := httputil.BindData(c, &editable); err != nil {
		s := err.Error()
		c.JSON(http.StatusBadRequest, TransactionResponse{Error: &s})
		return
	}

	transaction, err := co.Transactions.Add(c.Request.Context(), editable.model())
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TransactionResponse{Error: &s})
		return
	}

	data := co.newTransaction(transaction)
	c.JSON(http.StatusCreated, TransactionResponse{Data: &data})
}

// UpdateTransaction replaces the full record of an existing transaction.
func (co Controller) UpdateTransaction(c *gin.Context) {
	uri, ok := bindURI(c)
	if !ok {
		return
	}

	var editable TransactionEditable
	if err := httputil.BindData(c, &editable); err != nil {
		s := err.Error()
		c.JSON(http.StatusBadRequest, TransactionResponse{Error: &s})
		return
	}

	model := editable.model()
	model.ID = uri.ID

	transaction, err := co.Transactions.Update(c.Request.Context(), model)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TransactionResponse{Error: &s})
		return
	}

	data := co.newTransaction(transaction)
	c.JSON(http.StatusOK, TransactionResponse{Data: &data})
}

// DeleteTransaction deletes a transaction.
func (co Controller) DeleteTransaction(c *gin.Context) {
	uri, ok := bindURI(c)
	if !ok {
		return
	}

	if err := co.Transactions.Delete(c.Request.Context(), uri.ID); err != nil {
		c.JSON(status(err), httperror.New(err))
		return
	}

	c.JSON(http.StatusNoContent, nil)
}
