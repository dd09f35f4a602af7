package handler

import (
	"errors"
	"fxrelay/internal/domain"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

type LatestRatesResponse struct {
	Success     bool                `json:"success"`
	MessageID   string              `json:"message_id,omitempty"`
	Rates       domain.RateSnapshot `json:"rates"`
	ProcessedAt time.Time           `json:"processed_at"`
}

// GetLatest godoc
// @Summary Last processed rates
// @Description Returns the most recent snapshot recorded by the consumer
// @Tags Rates
// @Produce json
// @Success 200 {object} LatestRatesResponse
// @Failure 404 {object} envelope
// @Failure 500 {object} envelope
// @Router /rates/latest [get]
func (h *Handler) GetLatest(w http.ResponseWriter, r *http.Request) {
	p, err := h.latest.Latest(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNothingRecorded) {
			writeError(w, http.StatusNotFound, "No rates processed yet.")
			return
		}
		msg := "Failed to read processed rates."
		logrus.WithError(err).WithField("handler", "GetLatest").Error(msg)
		writeError(w, http.StatusInternalServerError, msg)
		return
	}
	writeJSON(w, http.StatusOK, LatestRatesResponse{
		Success:     true,
		MessageID:   p.MessageID,
		Rates:       p.Rates,
		ProcessedAt: p.ProcessedAt,
	})
}
