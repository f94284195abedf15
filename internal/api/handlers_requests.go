package api

import (
	"encoding/json"
	"net/http"

	"github.com/agroconnect/farm-scheduling/internal/scheduling"
)

func createRequestHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateRequestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		date, ok := parseDate(req.PreferredDate)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_preferred_date", "preferred_date must be YYYY-MM-DD")
			return
		}

		created, err := svc.CreateRequest(r.Context(), scheduling.CreateRequestInput{
			FarmerID:      req.FarmerID,
			CenterID:      req.CenterID,
			PreferredDate: date,
			PreferredSlot: req.PreferredSlot,
			ContactPhone:  req.ContactPhone,
			LocationNote:  req.LocationNote,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toRequestResponse(*created))
	}
}

func getRequestHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_request_id", "id must be a positive integer")
			return
		}

		req, err := svc.GetRequest(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toRequestResponse(*req))
	}
}

func searchRequestsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f scheduling.RequestFilter

		if v := r.URL.Query().Get("status"); v != "" {
			status := scheduling.RequestStatus(v)
			f.Status = &status
		}
		if v, ok := queryInt64(r, "center_id"); ok {
			f.CenterID = &v
		}
		if v, ok := queryInt64(r, "farmer_id"); ok {
			f.FarmerID = &v
		}
		if v, ok := queryDate(r, "date_from"); ok {
			f.DateFrom = &v
		}
		if v, ok := queryDate(r, "date_to"); ok {
			f.DateTo = &v
		}

		page, limit := pageParams(r)
		items, total, err := svc.SearchRequests(r.Context(), f, page, limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := PagedResponse[RequestResponse]{Items: []RequestResponse{}, Total: total, Page: page, Limit: limit}
		for _, it := range items {
			resp.Items = append(resp.Items, toRequestResponse(it))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listPendingRequestsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListPendingRequests(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := make([]RequestResponse, 0, len(items))
		for _, it := range items {
			resp = append(resp, toRequestResponse(it))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listRequestsByFarmerHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		farmerID, ok := idParam(r, "farmerID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_farmer_id", "farmerID must be a positive integer")
			return
		}

		items, err := svc.ListRequestsByFarmer(r.Context(), farmerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := make([]RequestResponse, 0, len(items))
		for _, it := range items {
			resp = append(resp, toRequestResponse(it))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func approveRequestHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_request_id", "id must be a positive integer")
			return
		}

		var req ApproveRequestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		date, ok := parseDate(req.ApprovedDate)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_approved_date", "approved_date must be YYYY-MM-DD")
			return
		}

		approved, sched, err := svc.ApproveRequest(r.Context(), id, scheduling.ApprovalInput{
			Date:           date,
			StartTime:      req.StartTime,
			EndTime:        req.EndTime,
			FieldOfficerID: req.FieldOfficerID,
			AdminNotes:     req.AdminNotes,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, struct {
			Request  RequestResponse  `json:"request"`
			Schedule ScheduleResponse `json:"schedule"`
		}{toRequestResponse(*approved), toScheduleResponse(*sched)})
	}
}

func rejectRequestHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_request_id", "id must be a positive integer")
			return
		}

		var req RejectRequestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		rejected, err := svc.RejectRequest(r.Context(), id, req.Reason, req.AdminNotes)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toRequestResponse(*rejected))
	}
}

func cancelRequestHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_request_id", "id must be a positive integer")
			return
		}

		cancelled, err := svc.CancelRequest(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toRequestResponse(*cancelled))
	}
}
