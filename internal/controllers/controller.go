// Package controllers contains the gin handlers of the JSON API. Handlers
// are thin: they bind and validate transport concerns and delegate all
// behavior to the entity services.
package controllers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fintrack-app/backend/internal/events"
	"github.com/fintrack-app/backend/internal/exchange"
	"github.com/fintrack-app/backend/internal/httperror"
	"github.com/fintrack-app/backend/internal/money"
	"github.com/fintrack-app/backend/internal/services"
)

// Controller bundles the services the handlers delegate to.
type Controller struct {
	Transactions *services.TransactionService
	Categories   *services.CategoryService
	Templates    *services.TemplateService
	Importer     *exchange.Importer
	Bus          *events.Bus
	Money        money.Formatter

	// Clock defaults to time.Now. Tests inject a fake.
	Clock func() time.Time
}

func (co Controller) now() time.Time {
	if co.Clock != nil {
		return co.Clock()
	}

	return time.Now()
}

// status maps a service error to its HTTP status code.
func status(err error) int {
	return httperror.Status(err)
}

// URIID is the id path parameter of detail routes.
type URIID struct {
	ID string `uri:"id" binding:"required"` // ID of the resource
}

func bindURI(c *gin.Context) (URIID, bool) {
	var uri URIID
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(status(err), httperror.New(err))
		return URIID{}, false
	}

	return uri, true
}
