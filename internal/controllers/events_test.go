package controllers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/fintrack-app/backend/internal/events"
	"github.com/fintrack-app/backend/internal/router"
)

// TestEventStreamHeaders verifies the stream endpoint sets up an SSE
// response. The request context is canceled up front so the stream returns
// immediately instead of blocking the test.
func (suite *TestSuiteStandard) TestEventStreamHeaders() {
	r, err := router.Config()
	suite.Require().NoError(err)
	router.AttachRoutes(suite.controller, r.Group("/"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "/v1/events", nil)
	suite.Require().NoError(err)

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, req)

	suite.Assert().Equal(http.StatusOK, recorder.Code)
	suite.Assert().Equal("no-cache", recorder.Header().Get("Cache-Control"))
}

func (suite *TestSuiteStandard) TestEventStreamReceivesEvent() {
	r, err := router.Config()
	suite.Require().NoError(err)
	router.AttachRoutes(suite.controller, r.Group("/"))

	ctx, cancel := context.WithCancel(context.Background())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "/v1/events", nil)
	suite.Require().NoError(err)

	recorder := httptest.NewRecorder()
	done := make(chan struct{})

	go func() {
		defer close(done)
		r.ServeHTTP(recorder, req)
	}()

	// Give the handler time to subscribe, then publish a change notification
	// and let the stream write it out before closing the connection.
	time.Sleep(100 * time.Millisecond)
	suite.bus.Publish(events.Event{Topic: events.TopicTransactionChanged, Name: "Groceries"})
	time.Sleep(100 * time.Millisecond)

	cancel()
	<-done

	suite.Assert().Contains(recorder.Body.String(), "transaction.changed")
}
