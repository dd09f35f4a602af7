package handler

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

// FetchAndSend godoc
// @Summary Fetch rates and publish them
// @Description Fetches the latest rates from the rate source and publishes them as one persistent message
// @Tags Rates
// @Produce json
// @Success 200 {object} envelope
// @Failure 500 {object} envelope
// @Router /fetch-and-send [post]
func (h *Handler) FetchAndSend(w http.ResponseWriter, r *http.Request) {
	res := h.sender.FetchAndSend(r.Context())
	if !res.Success {
		logrus.WithError(res.Err).WithField("handler", "FetchAndSend").Error(res.Message)
		writeError(w, http.StatusInternalServerError, res.Message)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: res.Message, Rates: res.Rates})
}
