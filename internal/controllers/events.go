package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fintrack-app/backend/internal/events"
	"github.com/fintrack-app/backend/internal/httputil"
)

// RegisterEventRoutes registers the change notification stream with the
// RouterGroup that is passed.
func (co Controller) RegisterEventRoutes(r *gin.RouterGroup) {
	r.OPTIONS("", httputil.OptionsGet)
	r.GET("", co.StreamEvents)
}

// StreamEvents streams change notifications as server-sent events so clients
// can re-fetch without polling. Delivery is best effort: a client that is
// not connected when a change happens falls back to the cache TTLs.
func (co Controller) StreamEvents(c *gin.Context) {
	// Buffered so a slow client never blocks the publisher.
	stream := make(chan events.Event, 16)

	unsubscribe := co.Bus.Subscribe("*", func(event events.Event) {
		select {
		case stream <- event:
		default:
		}
	})
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	c.Stream(func(_ io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case event := <-stream:
			c.SSEvent(event.Topic, event)
			return true
		}
	})
}
