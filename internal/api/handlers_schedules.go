package api

import (
	"encoding/json"
	"net/http"

	"github.com/agroconnect/farm-scheduling/internal/scheduling"
)

func createScheduleHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		date, ok := parseDate(req.ScheduledDate)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_scheduled_date", "scheduled_date must be YYYY-MM-DD")
			return
		}

		created, err := svc.CreateSchedule(r.Context(), scheduling.CreateScheduleInput{
			FarmerID:       req.FarmerID,
			CenterID:       req.CenterID,
			Date:           date,
			StartTime:      req.StartTime,
			EndTime:        req.EndTime,
			FieldOfficerID: req.FieldOfficerID,
			ContactPhone:   req.ContactPhone,
			AdminNotes:     req.AdminNotes,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toScheduleResponse(*created))
	}
}

func getScheduleHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_schedule_id", "id must be a positive integer")
			return
		}

		sched, err := svc.GetSchedule(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toScheduleResponse(*sched))
	}
}

func searchSchedulesHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f scheduling.ScheduleFilter

		if v := r.URL.Query().Get("status"); v != "" {
			status := scheduling.ScheduleStatus(v)
			f.Status = &status
		}
		if v, ok := queryInt64(r, "center_id"); ok {
			f.CenterID = &v
		}
		if v, ok := queryInt64(r, "farmer_id"); ok {
			f.FarmerID = &v
		}
		if v, ok := queryInt64(r, "field_officer_id"); ok {
			f.FieldOfficerID = &v
		}
		if v, ok := queryDate(r, "date_from"); ok {
			f.DateFrom = &v
		}
		if v, ok := queryDate(r, "date_to"); ok {
			f.DateTo = &v
		}

		page, limit := pageParams(r)
		items, total, err := svc.SearchSchedules(r.Context(), f, page, limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := PagedResponse[ScheduleResponse]{Items: []ScheduleResponse{}, Total: total, Page: page, Limit: limit}
		for _, it := range items {
			resp.Items = append(resp.Items, toScheduleResponse(it))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listTodaySchedulesHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListTodaySchedules(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := make([]ScheduleResponse, 0, len(items))
		for _, it := range items {
			resp = append(resp, toScheduleResponse(it))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listSchedulesByFarmerHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		farmerID, ok := idParam(r, "farmerID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_farmer_id", "farmerID must be a positive integer")
			return
		}

		items, err := svc.ListSchedulesByFarmer(r.Context(), farmerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := make([]ScheduleResponse, 0, len(items))
		for _, it := range items {
			resp = append(resp, toScheduleResponse(it))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func updateScheduleHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_schedule_id", "id must be a positive integer")
			return
		}

		var req UpdateScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		upd := scheduling.ScheduleUpdate{
			StartTime:       req.StartTime,
			EndTime:         req.EndTime,
			AdminNotes:      req.AdminNotes,
			RejectionReason: req.RejectionReason,
			FieldOfficerID:  req.FieldOfficerID,
		}
		if req.Status != nil {
			status := scheduling.ScheduleStatus(*req.Status)
			upd.Status = &status
		}

		updated, err := svc.UpdateSchedule(r.Context(), id, upd)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toScheduleResponse(*updated))
	}
}

func completeScheduleHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_schedule_id", "id must be a positive integer")
			return
		}

		completed, err := svc.MarkScheduleCompleted(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toScheduleResponse(*completed))
	}
}
