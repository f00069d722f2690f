package controllers_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/fintrack-app/backend/internal/controllers"
	"github.com/fintrack-app/backend/test"
)

// csvUpload builds a multipart body containing the CSV content as a file.
func csvUpload(suite *TestSuiteStandard, filename, content string) (*bytes.Buffer, map[string]string) {
	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)

	w, err := mw.CreateFormFile("file", filename)
	suite.Require().NoError(err)

	_, err = w.Write([]byte(content))
	suite.Require().NoError(err)
	suite.Require().NoError(mw.Close())

	return body, map[string]string{"Content-Type": mw.FormDataContentType()}
}

func (suite *TestSuiteStandard) TestExport() {
	suite.createTestTransaction(`{"date": "2024-03-10T00:00:00Z", "type": "expense", "category": "Groceries", "amount": 14.50}`)

	recorder := test.Request(suite.controller, suite.T(), http.MethodGet, "/v1/export", nil)

	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)
	suite.Assert().Equal("text/csv", recorder.Header().Get("Content-Type"))
	suite.Assert().Contains(recorder.Header().Get("Content-Disposition"), "fintrack-expenses-")

	lines := strings.Split(strings.TrimSpace(recorder.Body.String()), "\n")
	suite.Require().Len(lines, 2)
	suite.Assert().Equal("Date,Type,Category,Amount,Notes", lines[0])
	suite.Assert().Equal("2024-03-10,expense,Groceries,14.5,", lines[1])
}

func (suite *TestSuiteStandard) TestImport() {
	csv := "Date,Type,Category,Amount,Notes\n" +
		"2024-03-10,expense,Groceries,14.50,\n" +
		"2024-03-10,subscription,Streaming,10,\n"

	body, headers := csvUpload(suite, "transactions.csv", csv)
	recorder := test.Request(suite.controller, suite.T(), http.MethodPost, "/v1/import", body, headers)

	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response controllers.ImportResponse
	test.DecodeResponse(suite.T(), &recorder, &response)

	suite.Require().NotNil(response.Data)
	suite.Assert().Equal(1, response.Data.Imported)
	suite.Assert().Equal(1, response.Data.Skipped)

	recorder = test.Request(suite.controller, suite.T(), http.MethodGet, "/v1/transactions", nil)

	var transactions controllers.TransactionListResponse
	test.DecodeResponse(suite.T(), &recorder, &transactions)
	suite.Assert().Len(transactions.Data, 1)
}

func (suite *TestSuiteStandard) TestImportNoFile() {
	recorder := test.Request(suite.controller, suite.T(), http.MethodPost, "/v1/import", "")
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestImportWrongSuffix() {
	body, headers := csvUpload(suite, "transactions.xlsx", "Date,Type,Category,Amount\n")
	recorder := test.Request(suite.controller, suite.T(), http.MethodPost, "/v1/import", body, headers)

	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestImportMissingHeader() {
	body, headers := csvUpload(suite, "transactions.csv", "Date,Category,Amount\n2024-03-10,Groceries,14.50\n")
	recorder := test.Request(suite.controller, suite.T(), http.MethodPost, "/v1/import", body, headers)

	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusBadRequest)
}
