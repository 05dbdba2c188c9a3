package api

import (
	"fmt"
	"net/http"

	"ticketify/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	exportSheet       = "Bookings"
	exportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var exportHeaders = []interface{}{"#", "Booking ID", "Created At", "Name", "Member ID", "Phone", "Seats", "Early Bird", "Delivery"}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.svc.Authorize(r.Context(), req.Password); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	bookings, err := s.svc.ListBookings(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	f, err := buildWorkbook(bookings)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", exportContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="bookings.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if err := f.Write(w); err != nil {
		s.logger.Error().Err(err).Msg("write export workbook")
	}
}

// buildWorkbook lays out one row per booking in stored order.
func buildWorkbook(bookings []models.Booking) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(exportSheet, "A1", &exportHeaders); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	style, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	_ = f.SetCellStyle(exportSheet, "A1", "I1", style)

	for i, b := range bookings {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		row := []interface{}{
			i + 1,
			b.ID,
			b.CreatedAt.Format("2006-01-02 15:04:05"),
			b.User.Name,
			b.User.MemberID,
			b.User.PhoneNumber,
			b.SeatRef(),
			yesNo(b.IsEarlyBird),
			string(b.DeliveryStatus),
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	_ = f.SetColWidth(exportSheet, "B", "B", 38)
	_ = f.SetColWidth(exportSheet, "C", "G", 20)
	return f, nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
