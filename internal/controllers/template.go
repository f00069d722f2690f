package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/fintrack-app/backend/internal/httperror"
	"github.com/fintrack-app/backend/internal/httputil"
	"github.com/fintrack-app/backend/internal/models"
)

// RegisterTemplateRoutes registers the routes for templates with the
// RouterGroup that is passed.
func (co Controller) RegisterTemplateRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", httputil.OptionsGetPost)
		r.GET("", co.GetTemplates)
		r.POST("", co.CreateTemplate)
	}

	// Template with ID
	{
		r.OPTIONS("/:id", httputil.OptionsPatchDelete)
		r.PATCH("/:id", co.UpdateTemplate)
		r.DELETE("/:id", co.DeleteTemplate)
	}
}

// TemplateEditable represents all user configurable parameters
type TemplateEditable struct {
	Name      string          `json:"name" example:"Weekly groceries"`
	Kind      string          `json:"type" example:"expense"`
	Category  string          `json:"category" example:"Groceries"`
	Amount    decimal.Decimal `json:"amount" example:"60"`
	Notes     string          `json:"notes"`
	IsDefault bool            `json:"is_default"`
}

func (editable TemplateEditable) model() models.Template {
	return models.Template{
		Name:      editable.Name,
		Kind:      models.Kind(editable.Kind),
		Category:  editable.Category,
		Amount:    editable.Amount,
		Notes:     editable.Notes,
		IsDefault: editable.IsDefault,
	}
}

type TemplateResponse struct {
	Data  *models.Template `json:"data"`
	Error *string          `json:"error"`
}

type TemplateListResponse struct {
	Data  []models.Template `json:"data"`
	Error *string           `json:"error"`
}

// GetTemplates returns all templates, or only the quick-entry defaults with
// ?default=true.
func (co Controller) GetTemplates(c *gin.Context) {
	var templates []models.Template
	var err error

	if c.Query("default") == "true" {
		templates, err = co.Templates.Defaults(c.Request.Context())
	} else {
		templates, err = co.Templates.All(c.Request.Context())
	}

	if err != nil {
		s := err.Error()
		c.JSON(status(err), TemplateListResponse{Error: &s})
		return
	}

	if templates == nil {
		templates = make([]models.Template, 0)
	}

	c.JSON(http.StatusOK, TemplateListResponse{Data: templates})
}

// CreateTemplate creates a new template.
func (co Controller) CreateTemplate(c *gin.Context) {
	var editable TemplateEditable
	if err := httputil.BindData(c, &editable); err != nil {
		s := err.Error()
		c.JSON(http.StatusBadRequest, TemplateResponse{Error: &s})
		return
	}

	template, err := co.Templates.Create(c.Request.Context(), editable.model())
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TemplateResponse{Error: &s})
		return
	}

	c.JSON(http.StatusCreated, TemplateResponse{Data: &template})
}

// UpdateTemplate replaces the full record of an existing template.
func (co Controller) UpdateTemplate(c *gin.Context) {
	uri, ok := bindURI(c)
	if !ok {
		return
	}

	var editable TemplateEditable
	if err := httputil.BindData(c, &editable); err != nil {
		s := err.Error()
		c.JSON(http.StatusBadRequest, TemplateResponse{Error: &s})
		return
	}

	template, err := co.Templates.Update(c.Request.Context(), uri.ID, editable.model())
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TemplateResponse{Error: &s})
		return
	}

	c.JSON(http.StatusOK, TemplateResponse{Data: &template})
}

// DeleteTemplate deletes a template.
func (co Controller) DeleteTemplate(c *gin.Context) {
	uri, ok := bindURI(c)
	if !ok {
		return
	}

	if err := co.Templates.Delete(c.Request.Context(), uri.ID); err != nil {
		c.JSON(status(err), httperror.New(err))
		return
	}

	c.JSON(http.StatusNoContent, nil)
}
