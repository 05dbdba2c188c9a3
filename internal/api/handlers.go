package api

import (
	"encoding/json"
	"net/http"

	"ticketify/internal/models"
)

const maxBodyBytes = 1 << 20

type submitRequest struct {
	Seats []models.Seat `json:"seats" validate:"unique=ID,dive"`
	User  models.User   `json:"user"`
}

type submitResponse struct {
	Success        bool                  `json:"success"`
	Booking        models.Booking        `json:"booking"`
	IsEarlyBird    bool                  `json:"isEarlyBird"`
	DeliveryStatus models.DeliveryStatus `json:"deliveryStatus"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

type resendRequest struct {
	BookingID string `json:"bookingId"`
	Password  string `json:"password"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{"status": "ok"}
	if len(s.checks) > 0 {
		checks := make(map[string]string, len(s.checks))
		for name, check := range s.checks {
			checks[name] = check()
		}
		resp["checks"] = checks
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateRequest(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.svc.Submit(r.Context(), req.Seats, req.User)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, submitResponse{
		Success:        true,
		Booking:        res.Booking,
		IsEarlyBird:    res.IsEarlyBird,
		DeliveryStatus: res.Booking.DeliveryStatus,
	})
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.svc.ListBookings(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (s *HTTPServer) handleOccupied(w http.ResponseWriter, r *http.Request) {
	ids, err := s.svc.OccupiedSeats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"seatIds": ids})
}

func (s *HTTPServer) handleVerify(w http.ResponseWriter, r *http.Request) {
	var user models.User
	if !decodeJSON(w, r, &user) {
		return
	}

	verified, err := s.svc.Verify(r.Context(), user)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"verified": verified})
}

func (s *HTTPServer) handleResend(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.svc.Resend(r.Context(), req.Password, req.BookingID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "notification sent"})
}

func (s *HTTPServer) handleClear(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.svc.ClearAll(r.Context(), req.Password); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
