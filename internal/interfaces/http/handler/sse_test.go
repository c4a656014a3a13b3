package handler

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallypro/storefront/internal/domain/store"
)

func TestOfferLatest_EvictsOldest(t *testing.T) {
	ch := make(chan []int, 2)

	assert.False(t, offerLatest(ch, []int{1}))
	assert.False(t, offerLatest(ch, []int{2}))
	assert.True(t, offerLatest(ch, []int{3}))

	assert.Equal(t, []int{2}, <-ch)
	assert.Equal(t, []int{3}, <-ch)
}

func TestStream_OutlivesServerWriteTimeout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/stream", func(c *gin.Context) {
		Stream(c, func(ctx context.Context, fn func([]string)) (store.Unsubscribe, error) {
			fn([]string{"first"})
			timer := time.AfterFunc(300*time.Millisecond, func() { fn([]string{"second"}) })
			return func() { timer.Stop() }, nil
		}, StreamConfig{Event: "items", Heartbeat: time.Hour})
	})

	srv := httptest.NewUnstartedServer(engine)
	srv.Config.WriteTimeout = 100 * time.Millisecond
	srv.Start()
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payloads []string
	scanner := bufio.NewScanner(resp.Body)
	for len(payloads) < 2 && scanner.Scan() {
		if line := scanner.Text(); strings.HasPrefix(line, "data:") {
			payloads = append(payloads, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []string{`["first"]`, `["second"]`}, payloads)
}
