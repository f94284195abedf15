package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/agroconnect/farm-scheduling/internal/scheduling"
)

func createSlotHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		date, ok := parseDate(req.Date)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		slot, err := svc.CreateTimeSlot(r.Context(), scheduling.CreateSlotInput{
			CenterID:    req.CenterID,
			Date:        date,
			StartTime:   req.StartTime,
			EndTime:     req.EndTime,
			MaxBookings: req.MaxBookings,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toSlotResponse(*slot))
	}
}

func updateSlotHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "id must be a positive integer")
			return
		}

		var req UpdateSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		slot, err := svc.UpdateTimeSlot(r.Context(), id, scheduling.TimeSlotUpdate{
			MaxBookings: req.MaxBookings,
			IsAvailable: req.IsAvailable,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toSlotResponse(*slot))
	}
}

func deleteSlotHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "id must be a positive integer")
			return
		}

		if err := svc.DeleteTimeSlot(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func listAvailableSlotsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		centerID, ok := queryInt64(r, "center_id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_center_id", "center_id is required")
			return
		}

		from, ok := queryDate(r, "date_from")
		if !ok {
			from = time.Now()
		}
		to, ok := queryDate(r, "date_to")
		if !ok {
			to = from.AddDate(0, 0, 14)
		}

		days, err := svc.ListAvailableSlots(r.Context(), centerID, from, to)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := make([]DayAvailabilityResponse, 0, len(days))
		for _, day := range days {
			d := DayAvailabilityResponse{Date: day.Date.Format(dateLayout)}
			for _, s := range day.Slots {
				d.Slots = append(d.Slots, toSlotResponse(s.Slot))
			}
			resp = append(resp, d)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func setDateAvailabilityHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SetDateAvailabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		date, ok := parseDate(req.Date)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		n, err := svc.SetDateAvailability(r.Context(), req.CenterID, date, req.Available, req.Force)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"date":          req.Date,
			"available":     req.Available,
			"slots_updated": n,
		})
	}
}

func bulkDateAvailabilityHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BulkDateAvailabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		dates := make([]time.Time, 0, len(req.Dates))
		for _, d := range req.Dates {
			date, ok := parseDate(d)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_date", "dates must be YYYY-MM-DD: "+d)
				return
			}
			dates = append(dates, date)
		}

		report, err := svc.BulkUpdateDateAvailability(r.Context(), req.CenterID, dates, req.Available, req.Force)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := BulkAvailabilityResponse{Updated: report.Updated, Failed: []DateFailureResponse{}}
		for _, f := range report.Failed {
			resp.Failed = append(resp.Failed, DateFailureResponse{Date: f.Date, Reason: f.Reason})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func dateHasAppointmentsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		centerID, ok := queryInt64(r, "center_id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_center_id", "center_id is required")
			return
		}

		date, ok := parseDate(r.URL.Query().Get("date"))
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		active, err := svc.DateHasAppointments(r.Context(), centerID, date)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"date":             date.Format(dateLayout),
			"has_appointments": active,
		})
	}
}
