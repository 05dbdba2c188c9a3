package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"ticketify/internal/domain"
	"ticketify/internal/models"
)

type errorResponse struct {
	Error           string `json:"error"`
	ErrorCode       string `json:"errorCode,omitempty"`
	ExistingSeatRef string `json:"existingSeatRef,omitempty"`
}

// errorStatus maps a service error to its HTTP status and response body.
// Server-side failures never expose wrapped details.
func errorStatus(err error) (int, errorResponse) {
	var already *domain.AlreadyBookedError
	switch {
	case errors.As(err, &already):
		return http.StatusConflict, errorResponse{
			Error:           domain.ErrAlreadyBooked.Error(),
			ErrorCode:       models.ErrorCodeAlreadyBooked,
			ExistingSeatRef: already.SeatRef,
		}
	case errors.Is(err, domain.ErrSeatConflict):
		return http.StatusConflict, errorResponse{
			Error:     domain.ErrSeatConflict.Error(),
			ErrorCode: models.ErrorCodeSeatConflict,
		}
	case errors.Is(err, domain.ErrNoSeats):
		return http.StatusBadRequest, errorResponse{Error: domain.ErrNoSeats.Error()}
	case errors.Is(err, domain.ErrIdentityUnverifiable):
		return http.StatusBadRequest, errorResponse{Error: domain.ErrIdentityUnverifiable.Error()}
	case errors.Is(err, domain.ErrNotEligible),
		errors.Is(err, domain.ErrNotYetOpen),
		errors.Is(err, domain.ErrClosed),
		errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: sentinelMessage(err)}
	case errors.Is(err, domain.ErrBookingNotFound):
		return http.StatusNotFound, errorResponse{Error: domain.ErrBookingNotFound.Error()}
	case errors.Is(err, domain.ErrTooManyAttempts):
		return http.StatusTooManyRequests, errorResponse{Error: domain.ErrTooManyAttempts.Error()}
	case errors.Is(err, domain.ErrDeliveryFailed):
		return http.StatusBadGateway, errorResponse{Error: domain.ErrDeliveryFailed.Error()}
	case errors.Is(err, domain.ErrConfig):
		return http.StatusInternalServerError, errorResponse{Error: domain.ErrConfig.Error()}
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusInternalServerError, errorResponse{Error: domain.ErrStoreUnavailable.Error()}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
	}
}

func sentinelMessage(err error) string {
	for _, s := range []error{domain.ErrNotEligible, domain.ErrNotYetOpen, domain.ErrClosed, domain.ErrForbidden} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorResponse{Error: message})
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorStatus(err)
	ev := s.logger.Warn()
	if status >= http.StatusInternalServerError {
		ev = s.logger.Error()
	}
	ev.Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
	writeJSON(w, status, body)
}
