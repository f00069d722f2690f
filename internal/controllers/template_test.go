package controllers_test

import (
	"fmt"
	"net/http"

	"github.com/fintrack-app/backend/internal/controllers"
	"github.com/fintrack-app/backend/test"
)

func (suite *TestSuiteStandard) createTestTemplate(body string) controllers.TemplateResponse {
	recorder := test.Request(suite.controller, suite.T(), http.MethodPost, "/v1/templates", body)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusCreated)

	var response controllers.TemplateResponse
	test.DecodeResponse(suite.T(), &recorder, &response)

	return response
}

func (suite *TestSuiteStandard) TestTemplatesEmptyList() {
	recorder := test.Request(suite.controller, suite.T(), http.MethodGet, "/v1/templates", nil)

	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)
	suite.Assert().JSONEq(`{"data": [], "error": null}`, recorder.Body.String())
}

func (suite *TestSuiteStandard) TestTemplateCreate() {
	response := suite.createTestTemplate(`{"name": "Weekly groceries", "type": "expense", "category": "Groceries", "amount": 60}`)

	suite.Require().NotNil(response.Data)
	suite.Assert().NotEmpty(response.Data.ID)
	suite.Assert().Equal("Weekly groceries", response.Data.Name)
}

func (suite *TestSuiteStandard) TestTemplateCreateInvalid() {
	recorder := test.Request(suite.controller, suite.T(), http.MethodPost, "/v1/templates", `{"name": "", "type": "expense", "category": "Groceries", "amount": 60}`)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestTemplatesDefaultFilter() {
	suite.createTestTemplate(`{"name": "Weekly groceries", "type": "expense", "category": "Groceries", "amount": 60, "is_default": true}`)
	suite.createTestTemplate(`{"name": "Coffee", "type": "expense", "category": "Eating out", "amount": 4}`)

	recorder := test.Request(suite.controller, suite.T(), http.MethodGet, "/v1/templates?default=true", nil)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response controllers.TemplateListResponse
	test.DecodeResponse(suite.T(), &recorder, &response)

	suite.Require().Len(response.Data, 1)
	suite.Assert().Equal("Weekly groceries", response.Data[0].Name)
}

func (suite *TestSuiteStandard) TestTemplateUpdate() {
	created := suite.createTestTemplate(`{"name": "Weekly groceries", "type": "expense", "category": "Groceries", "amount": 60}`)

	recorder := test.Request(suite.controller, suite.T(), http.MethodPatch,
		fmt.Sprintf("/v1/templates/%s", created.Data.ID),
		`{"name": "Monthly groceries", "type": "expense", "category": "Groceries", "amount": 240}`)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response controllers.TemplateResponse
	test.DecodeResponse(suite.T(), &recorder, &response)

	suite.Require().NotNil(response.Data)
	suite.Assert().Equal("Monthly groceries", response.Data.Name)
}

func (suite *TestSuiteStandard) TestTemplateUpdateMissing() {
	recorder := test.Request(suite.controller, suite.T(), http.MethodPatch, "/v1/templates/does-not-exist",
		`{"name": "Monthly groceries", "type": "expense", "category": "Groceries", "amount": 240}`)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusNotFound)
}

func (suite *TestSuiteStandard) TestTemplateDelete() {
	created := suite.createTestTemplate(`{"name": "Weekly groceries", "type": "expense", "category": "Groceries", "amount": 60}`)

	recorder := test.Request(suite.controller, suite.T(), http.MethodDelete,
		fmt.Sprintf("/v1/templates/%s", created.Data.ID), nil)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusNoContent)

	recorder = test.Request(suite.controller, suite.T(), http.MethodGet, "/v1/templates", nil)
	suite.Assert().JSONEq(`{"data": [], "error": null}`, recorder.Body.String())
}
