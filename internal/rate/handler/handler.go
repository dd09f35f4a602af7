package handler

import (
	"context"
	"encoding/json"
	"fxrelay/internal/domain"
	"fxrelay/internal/rate"
	"net/http"
)

type RatesSender interface {
	FetchAndSend(ctx context.Context) rate.SendResult
}

type LatestRatesReader interface {
	Latest(ctx context.Context) (domain.ProcessedRates, error)
}

// Handler serves both processes; a nil dependency leaves its routes unused.
type Handler struct {
	sender RatesSender
	latest LatestRatesReader
	status string
}

func NewProducerHandler(sender RatesSender) *Handler {
	return &Handler{sender: sender}
}

func NewConsumerHandler(latest LatestRatesReader, status string) *Handler {
	return &Handler{latest: latest, status: status}
}

// envelope is the JSON body of every API response.
type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Rates   domain.RateSnapshot `json:"rates,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, statusCode int, msg string) {
	writeJSON(w, statusCode, envelope{Success: false, Message: msg})
}

// MethodNotAllowed answers requests to unknown API routes or with a wrong method.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed.")
}
