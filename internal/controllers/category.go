package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/fintrack-app/backend/internal/httperror"
	"github.com/fintrack-app/backend/internal/httputil"
	"github.com/fintrack-app/backend/internal/models"
)

// RegisterCategoryRoutes registers the routes for categories with the
// RouterGroup that is passed.
func (co Controller) RegisterCategoryRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", httputil.OptionsGetPost)
		r.GET("", co.GetCategories)
		r.POST("", co.CreateCategory)
	}

	r.OPTIONS("/recent", httputil.OptionsGet)
	r.GET("/recent", co.GetRecentCategories)

	// Category with ID
	{
		r.OPTIONS("/:id", httputil.OptionsPatchDelete)
		r.PATCH("/:id", co.UpdateCategory)
		r.DELETE("/:id", co.DeleteCategory)
		r.OPTIONS("/:id/merge", httputil.OptionsPost)
		r.POST("/:id/merge", co.MergeCategory)
	}
}

// CategoryEditable represents all user configurable parameters
type CategoryEditable struct {
	Name   string              `json:"name" example:"Groceries"`
	Kind   string              `json:"type" example:"expense"`
	Budget decimal.NullDecimal `json:"budget"`
	Color  string              `json:"color" example:"#36a2eb"`
}

func (editable CategoryEditable) model() models.Category {
	return models.Category{
		Name:   editable.Name,
		Kind:   models.Kind(editable.Kind),
		Budget: editable.Budget,
		Color:  editable.Color,
	}
}

// Category is the API resource: the record with its derived values and the
// rendered spending.
type Category struct {
	models.CategoryWithSpending
	SpendingDisplay string `json:"spending_display" example:"$45.00"`
}

func (co Controller) newCategory(model models.CategoryWithSpending) Category {
	return Category{
		CategoryWithSpending: model,
		SpendingDisplay:      co.Money.Format(model.Spending),
	}
}

type CategoryResponse struct {
	Data  *Category `json:"data"`
	Error *string   `json:"error"`
}

type CategoryListResponse struct {
	Data  []Category `json:"data"`
	Error *string    `json:"error"`
}

// GetCategories returns all categories with their computed spending.
func (co Controller) GetCategories(c *gin.Context) {
	categories, err := co.Categories.AllWithSpending(c.Request.Context())
	if err != nil {
		s := err.Error()
		c.JSON(status(err), CategoryListResponse{Error: &s})
		return
	}

	data := make([]Category, 0, len(categories))
	for _, category := range categories {
		data = append(data, co.newCategory(category))
	}

	c.JSON(http.StatusOK, CategoryListResponse{Data: data})
}

// GetRecentCategories returns the categories ranked for quick entry.
func (co Controller) GetRecentCategories(c *gin.Context) {
	type query struct {
		Limit int `form:"limit"`
	}
	var q query
	_ = c.Bind(&q)

	categories, err := co.Categories.RecentlyUsed(c.Request.Context(), q.Limit)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), CategoryListResponse{Error: &s})
		return
	}

	data := make([]Category, 0, len(categories))
	for _, category := range categories {
		data = append(data, co.newCategory(category))
	}

	c.JSON(http.StatusOK, CategoryListResponse{Data: data})
}

// CreateCategory creates a new category.
func (co Controller) CreateCategory(c *gin.Context) {
	var editable CategoryEditable
	if err := httputil.BindData(c, &editable); err != nil {
		s := err.Error()
		c.JSON(http.StatusBadRequest, CategoryResponse{Error: &s})
		return
	}

	category, err := co.Categories.Create(c.Request.Context(), editable.model())
	if err != nil {
		s := err.Error()
		c.JSON(status(err), CategoryResponse{Error: &s})
		return
	}

	data := co.newCategory(models.CategoryWithSpending{Category: category})
	c.JSON(http.StatusCreated, CategoryResponse{Data: &data})
}

// UpdateCategory updates a category. A name change is propagated to all
// transactions of the category.
func (co Controller) UpdateCategory(c *gin.Context) {
	uri, ok := bindURI(c)
	if !ok {
		return
	}

	var editable CategoryEditable
	if err := httputil.BindData(c, &editable); err != nil {
		s := err.Error()
		c.JSON(http.StatusBadRequest, CategoryResponse{Error: &s})
		return
	}

	category, err := co.Categories.Update(c.Request.Context(), uri.ID, editable.model())
	if err != nil {
		s := err.Error()
		c.JSON(status(err), CategoryResponse{Error: &s})
		return
	}

	data := co.newCategory(models.CategoryWithSpending{Category: category})
	c.JSON(http.StatusOK, CategoryResponse{Data: &data})
}

// DeleteCategory deletes a category. When the category still has
// transactions, the "replacement" query parameter must name the category of
// the same kind that receives them.
func (co Controller) DeleteCategory(c *gin.Context) {
	uri, ok := bindURI(c)
	if !ok {
		return
	}

	replacementID := c.Query("replacement")

	if err := co.Categories.Delete(c.Request.Context(), uri.ID, replacementID); err != nil {
		c.JSON(status(err), httperror.New(err))
		return
	}

	c.JSON(http.StatusNoContent, nil)
}

// MergeRequest names the category that receives the merged transactions.
type MergeRequest struct {
	TargetID string `json:"target_id" binding:"required"`
}

// MergeCategory merges the category into the target of the same kind.
func (co Controller) MergeCategory(c *gin.Context) {
	uri, ok := bindURI(c)
	if !ok {
		return
	}

	var body MergeRequest
	if err := httputil.BindData(c, &body); err != nil {
		c.JSON(http.StatusBadRequest, httperror.New(err))
		return
	}

	if err := co.Categories.Merge(c.Request.Context(), uri.ID, body.TargetID); err != nil {
		c.JSON(status(err), httperror.New(err))
		return
	}

	c.JSON(http.StatusNoContent, nil)
}
