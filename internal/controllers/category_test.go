package controllers_test

import (
	"fmt"
	"net/http"

	"github.com/fintrack-app/backend/internal/controllers"
	"github.com/fintrack-app/backend/test"
)

func (suite *TestSuiteStandard) createTestCategory(body string) controllers.CategoryResponse {
	recorder := test.Request(suite.controller, suite.T(), http.MethodPost, "/v1/categories", body)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusCreated)

	var response controllers.CategoryResponse
	test.DecodeResponse(suite.T(), &recorder, &response)

	return response
}

func (suite *TestSuiteStandard) TestCategoriesEmptyList() {
	recorder := test.Request(suite.controller, suite.T(), http.MethodGet, "/v1/categories", nil)

	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)
	suite.Assert().JSONEq(`{"data": [], "error": null}`, recorder.Body.String())
}

func (suite *TestSuiteStandard) TestCategoryCreate() {
	response := suite.createTestCategory(`{"name": "Groceries", "type": "expense", "color": "#36a2eb"}`)

	suite.Require().NotNil(response.Data)
	suite.Assert().NotEmpty(response.Data.ID)
	suite.Assert().Equal("Groceries", response.Data.Name)
	suite.Assert().Equal("$0.00", response.Data.SpendingDisplay)
}

func (suite *TestSuiteStandard) TestCategoryCreateInvalidKind() {
	recorder := test.Request(suite.controller, suite.T(), http.MethodPost, "/v1/categories", `{"name": "Groceries", "type": "subscription"}`)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestCategoryCreateEmptyName() {
	recorder := test.Request(suite.controller, suite.T(), http.MethodPost, "/v1/categories", `{"name": "", "type": "expense"}`)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestCategoriesListWithSpending() {
	suite.createTestTransaction(`{"type": "expense", "category": "Groceries", "amount": 14.50}`)
	suite.createTestTransaction(`{"type": "expense", "category": "Groceries", "amount": 30.50}`)

	recorder := test.Request(suite.controller, suite.T(), http.MethodGet, "/v1/categories", nil)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response controllers.CategoryListResponse
	test.DecodeResponse(suite.T(), &recorder, &response)

	suite.Require().Len(response.Data, 1)
	suite.Assert().Equal("Groceries", response.Data[0].Name)
	suite.Assert().Equal(2, response.Data[0].TransactionCount)
	suite.Assert().Equal("$45.00", response.Data[0].SpendingDisplay)
}

func (suite *TestSuiteStandard) TestCategoryRenamePropagates() {
	suite.createTestTransaction(`{"type": "expense", "category": "Groceries", "amount": 14.50}`)

	recorder := test.Request(suite.controller, suite.T(), http.MethodGet, "/v1/categories", nil)
	var categories controllers.CategoryListResponse
	test.DecodeResponse(suite.T(), &recorder, &categories)
	suite.Require().Len(categories.Data, 1)

	recorder = test.Request(suite.controller, suite.T(), http.MethodPatch,
		fmt.Sprintf("/v1/categories/%s", categories.Data[0].ID), `{"name": "Food"}`)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	recorder = test.Request(suite.controller, suite.T(), http.MethodGet, "/v1/transactions", nil)
	var transactions controllers.TransactionListResponse
	test.DecodeResponse(suite.T(), &recorder, &transactions)

	suite.Require().Len(transactions.Data, 1)
	suite.Assert().Equal("Food", transactions.Data[0].Category)
}

func (suite *TestSuiteStandard) TestCategoryUpdateKindImmutable() {
	created := suite.createTestCategory(`{"name": "Groceries", "type": "expense"}`)

	recorder := test.Request(suite.controller, suite.T(), http.MethodPatch,
		fmt.Sprintf("/v1/categories/%s", created.Data.ID), `{"type": "income"}`)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestCategoryDelete() {
	created := suite.createTestCategory(`{"name": "Groceries", "type": "expense"}`)

	recorder := test.Request(suite.controller, suite.T(), http.MethodDelete,
		fmt.Sprintf("/v1/categories/%s", created.Data.ID), nil)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusNoContent)
}

func (suite *TestSuiteStandard) TestCategoryDeleteMissing() {
	recorder := test.Request(suite.controller, suite.T(), http.MethodDelete, "/v1/categories/does-not-exist", nil)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusNotFound)
}

func (suite *TestSuiteStandard) TestCategoryDeleteRequiresReplacement() {
	suite.createTestTransaction(`{"type": "expense", "category": "Groceries", "amount": 14.50}`)

	recorder := test.Request(suite.controller, suite.T(), http.MethodGet, "/v1/categories", nil)
	var categories controllers.CategoryListResponse
	test.DecodeResponse(suite.T(), &recorder, &categories)
	suite.Require().Len(categories.Data, 1)

	recorder = test.Request(suite.controller, suite.T(), http.MethodDelete,
		fmt.Sprintf("/v1/categories/%s", categories.Data[0].ID), nil)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestCategoryDeleteWithReplacement() {
	suite.createTestTransaction(`{"type": "expense", "category": "Groceries", "amount": 14.50}`)
	replacement := suite.createTestCategory(`{"name": "Food", "type": "expense"}`)

	recorder := test.Request(suite.controller, suite.T(), http.MethodGet, "/v1/categories", nil)
	var categories controllers.CategoryListResponse
	test.DecodeResponse(suite.T(), &recorder, &categories)

	var groceriesID string
	for _, c := range categories.Data {
		if c.Name == "Groceries" {
			groceriesID = c.ID
		}
	}
	suite.Require().NotEmpty(groceriesID)

	recorder = test.Request(suite.controller, suite.T(), http.MethodDelete,
		fmt.Sprintf("/v1/categories/%s?replacement=%s", groceriesID, replacement.Data.ID), nil)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusNoContent)

	recorder = test.Request(suite.controller, suite.T(), http.MethodGet, "/v1/transactions", nil)
	var transactions controllers.TransactionListResponse
	test.DecodeResponse(suite.T(), &recorder, &transactions)

	suite.Require().Len(transactions.Data, 1)
	suite.Assert().Equal("Food", transactions.Data[0].Category)
}

func (suite *TestSuiteStandard) TestCategoryMerge() {
	suite.createTestTransaction(`{"type": "expense", "category": "Groceries", "amount": 14.50}`)
	suite.createTestTransaction(`{"type": "expense", "category": "Food", "amount": 30.50}`)

	recorder := test.Request(suite.controller, suite.T(), http.MethodGet, "/v1/categories", nil)
	var categories controllers.CategoryListResponse
	test.DecodeResponse(suite.T(), &recorder, &categories)

	var sourceID, targetID string
	for _, c := range categories.Data {
		switch c.Name {
		case "Groceries":
			sourceID = c.ID
		case "Food":
			targetID = c.ID
		}
	}
	suite.Require().NotEmpty(sourceID)
	suite.Require().NotEmpty(targetID)

	recorder = test.Request(suite.controller, suite.T(), http.MethodPost,
		fmt.Sprintf("/v1/categories/%s/merge", sourceID),
		fmt.Sprintf(`{"target_id": %q}`, targetID))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusNoContent)

	recorder = test.Request(suite.controller, suite.T(), http.MethodGet, "/v1/categories", nil)
	test.DecodeResponse(suite.T(), &recorder, &categories)

	suite.Require().Len(categories.Data, 1)
	suite.Assert().Equal("Food", categories.Data[0].Name)
	suite.Assert().Equal(2, categories.Data[0].TransactionCount)
	suite.Assert().Equal("$45.00", categories.Data[0].SpendingDisplay)
}

func (suite *TestSuiteStandard) TestCategoryMergeMissingTarget() {
	created := suite.createTestCategory(`{"name": "Groceries", "type": "expense"}`)

	recorder := test.Request(suite.controller, suite.T(), http.MethodPost,
		fmt.Sprintf("/v1/categories/%s/merge", created.Data.ID), `{}`)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestCategoriesRecent() {
	suite.createTestTransaction(`{"type": "expense", "category": "Groceries", "amount": 14.50}`)
	suite.createTestCategory(`{"name": "Hobbies", "type": "expense"}`)

	recorder := test.Request(suite.controller, suite.T(), http.MethodGet, "/v1/categories/recent", nil)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response controllers.CategoryListResponse
	test.DecodeResponse(suite.T(), &recorder, &response)

	suite.Require().Len(response.Data, 1, "only categories with transactions appear in the recent list")
	suite.Assert().Equal("Groceries", response.Data[0].Name)
}

func (suite *TestSuiteStandard) TestCategoryOptions() {
	recorder := test.Request(suite.controller, suite.T(), http.MethodOptions, "/v1/categories", nil)

	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusNoContent)
	suite.Assert().Equal("GET, POST", recorder.Header().Get("allow"))
}
