package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"fxrelay/internal/domain"
	"fxrelay/internal/rate"
	"fxrelay/internal/rate/handler"

	"github.com/stretchr/testify/require"
)

type stubSender struct{ calls int }

func (s *stubSender) FetchAndSend(context.Context) rate.SendResult {
	s.calls++
	return rate.SendResult{Success: true, Message: rate.MsgSent, Rates: domain.RateSnapshot{"USD": 1}}
}

type stubLatest struct{}

func (stubLatest) Latest(context.Context) (domain.ProcessedRates, error) {
	return domain.ProcessedRates{}, domain.ErrNothingRecorded
}

func serve(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func TestProducerRouter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>rates</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))

	sender := &stubSender{}
	router := NewProducerRouter(handler.NewProducerHandler(sender), dir)

	rr := serve(t, router, http.MethodPost, "/api/fetch-and-send")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 1, sender.calls)

	rr = serve(t, router, http.MethodGet, "/api/fetch-and-send")
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	require.Contains(t, rr.Body.String(), `"success":false`)

	rr = serve(t, router, http.MethodPost, "/api/unknown")
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	require.Equal(t, 1, sender.calls)

	rr = serve(t, router, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "<h1>rates</h1>")

	rr = serve(t, router, http.MethodGet, "/public/app.js")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "console.log(1)", rr.Body.String())

	rr = serve(t, router, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestConsumerRouter(t *testing.T) {
	router := NewConsumerRouter(handler.NewConsumerHandler(stubLatest{}, "RabbitMQ Consumer is running."), true)

	rr := serve(t, router, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "RabbitMQ Consumer is running.", rr.Body.String())

	rr = serve(t, router, http.MethodGet, "/api/rates/latest")
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = serve(t, router, http.MethodPost, "/api/rates/latest")
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestConsumerRouter_WithoutJournal(t *testing.T) {
	router := NewConsumerRouter(handler.NewConsumerHandler(nil, "RabbitMQ Consumer is running as a scheduled job."), false)

	rr := serve(t, router, http.MethodGet, "/api/rates/latest")
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = serve(t, router, http.MethodGet, "/")
	require.Equal(t, "RabbitMQ Consumer is running as a scheduled job.", rr.Body.String())
}
