package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fintrack-app/backend/internal/exchange"
	"github.com/fintrack-app/backend/internal/httperror"
	"github.com/fintrack-app/backend/internal/httputil"
)

// RegisterExchangeRoutes registers the CSV export and import routes with the
// RouterGroup that is passed.
func (co Controller) RegisterExchangeRoutes(r *gin.RouterGroup) {
	r.OPTIONS("/export", httputil.OptionsGet)
	r.GET("/export", co.ExportCSV)

	r.OPTIONS("/import", httputil.OptionsPost)
	r.POST("/import", co.ImportCSV)
}

// ExportCSV streams all transactions as a CSV download.
func (co Controller) ExportCSV(c *gin.Context) {
	transactions, err := co.Transactions.All(c.Request.Context())
	if err != nil {
		c.JSON(status(err), httperror.New(err))
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exchange.Filename(co.now())))

	if err := exchange.Export(c.Writer, transactions); err != nil {
		// The header is already out; all that is left is logging via the
		// request logger.
		_ = c.Error(err)
	}
}

type ImportResponse struct {
	Data  *exchange.Result `json:"data"`
	Error *string          `json:"error"`
}

// ImportCSV imports transactions from an uploaded CSV file.
func (co Controller) ImportCSV(c *gin.Context) {
	formFile, err := c.FormFile("file")
	if err != nil || formFile == nil {
		s := "you must send a file with the name 'file'"
		c.JSON(http.StatusBadRequest, ImportResponse{Error: &s})
		return
	}

	if !strings.HasSuffix(formFile.Filename, ".csv") {
		s := "this endpoint only supports .csv files"
		c.JSON(http.StatusBadRequest, ImportResponse{Error: &s})
		return
	}

	file, err := formFile.Open()
	if err != nil {
		s := err.Error()
		c.JSON(http.StatusBadRequest, ImportResponse{Error: &s})
		return
	}
	defer file.Close()

	result, err := co.Importer.Import(c.Request.Context(), file)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), ImportResponse{Data: &result, Error: &s})
		return
	}

	c.JSON(http.StatusOK, ImportResponse{Data: &result})
}
