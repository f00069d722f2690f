package controllers_test

import (
	"fmt"
	"net/http"

	"github.com/fintrack-app/backend/internal/controllers"
	"github.com/fintrack-app/backend/test"
)

func (suite *TestSuiteStandard) createTestTransaction(body string) controllers.TransactionResponse {
	recorder := test.Request(suite.controller, suite.T(), http.MethodPost, "/v1/transactions", body)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusCreated)

	var response controllers.TransactionResponse
	test.DecodeResponse(suite.T(), &recorder, &response)

	return response
}

func (suite *TestSuiteStandard) TestTransactionsEmptyList() {
	recorder := test.Request(suite.controller, suite.T(), http.MethodGet, "/v1/transactions", nil)

	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)
	suite.Assert().JSONEq(`{"data": [], "error": null}`, recorder.Body.String())
}

func (suite *TestSuiteStandard) TestTransactionCreate() {
	response := suite.createTestTransaction(`{"date": "2024-03-10T00:00:00Z", "type": "expense", "category": "Groceries", "amount": 14.50, "notes": "Farmer's market"}`)

	suite.Require().NotNil(response.Data)
	suite.Assert().NotEmpty(response.Data.ID)
	suite.Assert().Equal("Groceries", response.Data.Category)
	suite.Assert().Equal("$14.50", response.Data.AmountDisplay)
}

func (suite *TestSuiteStandard) TestTransactionCreateEmptyBody() {
	recorder := test.Request(suite.controller, suite.T(), http.MethodPost, "/v1/transactions", "")
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestTransactionCreateBrokenJSON() {
	recorder := test.Request(suite.controller, suite.T(), http.MethodPost, "/v1/transactions", `{ broken`)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestTransactionCreateInvalidKind() {
	recorder := test.Request(suite.controller, suite.T(), http.MethodPost, "/v1/transactions", `{"type": "subscription", "category": "Streaming", "amount": 10}`)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestTransactionCreateNegativeAmount() {
	recorder := test.Request(suite.controller, suite.T(), http.MethodPost, "/v1/transactions", `{"type": "expense", "category": "Groceries", "amount": -5}`)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestTransactionsList() {
	suite.createTestTransaction(`{"type": "expense", "category": "Groceries", "amount": 14.50}`)
	suite.createTestTransaction(`{"type": "income", "category": "Salary", "amount": 3000}`)

	recorder := test.Request(suite.controller, suite.T(), http.MethodGet, "/v1/transactions", nil)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response controllers.TransactionListResponse
	test.DecodeResponse(suite.T(), &recorder, &response)

	suite.Assert().Len(response.Data, 2)
}

func (suite *TestSuiteStandard) TestTransactionsFilterKind() {
	suite.createTestTransaction(`{"type": "expense", "category": "Groceries", "amount": 14.50}`)
	suite.createTestTransaction(`{"type": "income", "category": "Salary", "amount": 3000}`)

	recorder := test.Request(suite.controller, suite.T(), http.MethodGet, "/v1/transactions?type=income", nil)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response controllers.TransactionListResponse
	test.DecodeResponse(suite.T(), &recorder, &response)

	suite.Require().Len(response.Data, 1)
	suite.Assert().Equal("Salary", response.Data[0].Category)
}

func (suite *TestSuiteStandard) TestTransactionsFilterCategory() {
	suite.createTestTransaction(`{"type": "expense", "category": "Groceries", "amount": 14.50}`)
	suite.createTestTransaction(`{"type": "expense", "category": "Rent", "amount": 800}`)

	recorder := test.Request(suite.controller, suite.T(), http.MethodGet, "/v1/transactions?category=Rent", nil)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response controllers.TransactionListResponse
	test.DecodeResponse(suite.T(), &recorder, &response)

	suite.Require().Len(response.Data, 1)
	suite.Assert().Equal("Rent", response.Data[0].Category)
}

func (suite *TestSuiteStandard) TestTransactionsFilterMonth() {
	suite.createTestTransaction(`{"date": "2024-03-10T00:00:00Z", "type": "expense", "category": "Groceries", "amount": 14.50}`)
	suite.createTestTransaction(`{"date": "2024-02-10T00:00:00Z", "type": "expense", "category": "Groceries", "amount": 20}`)

	recorder := test.Request(suite.controller, suite.T(), http.MethodGet, "/v1/transactions?month=2024-03", nil)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response controllers.TransactionListResponse
	test.DecodeResponse(suite.T(), &recorder, &response)

	suite.Assert().Len(response.Data, 1)
}

func (suite *TestSuiteStandard) TestTransactionUpdate() {
	created := suite.createTestTransaction(`{"type": "expense", "category": "Groceries", "amount": 14.50}`)

	recorder := test.Request(suite.controller, suite.T(), http.MethodPatch,
		fmt.Sprintf("/v1/transactions/%s", created.Data.ID),
		`{"date": "2024-03-10T00:00:00Z", "type": "expense", "category": "Food", "amount": 20}`)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response controllers.TransactionResponse
	test.DecodeResponse(suite.T(), &recorder, &response)

	suite.Require().NotNil(response.Data)
	suite.Assert().Equal("Food", response.Data.Category)
	suite.Assert().Equal("$20.00", response.Data.AmountDisplay)
}

func (suite *TestSuiteStandard) TestTransactionUpdateMissing() {
	recorder := test.Request(suite.controller, suite.T(), http.MethodPatch, "/v1/transactions/does-not-exist",
		`{"type": "expense", "category": "Food", "amount": 20}`)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusNotFound)
}

func (suite *TestSuiteStandard) TestTransactionDelete() {
	created := suite.createTestTransaction(`{"type": "expense", "category": "Groceries", "amount": 14.50}`)

	recorder := test.Request(suite.controller, suite.T(), http.MethodDelete,
		fmt.Sprintf("/v1/transactions/%s", created.Data.ID), nil)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusNoContent)

	recorder = test.Request(suite.controller, suite.T(), http.MethodGet, "/v1/transactions", nil)

	var response controllers.TransactionListResponse
	test.DecodeResponse(suite.T(), &recorder, &response)
	suite.Assert().Empty(response.Data)
}

func (suite *TestSuiteStandard) TestTransactionOptions() {
	recorder := test.Request(suite.controller, suite.T(), http.MethodOptions, "/v1/transactions", nil)

	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusNoContent)
	suite.Assert().Equal("GET, POST", recorder.Header().Get("allow"))
}
