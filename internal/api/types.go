package api

import (
	"time"

	"github.com/agroconnect/farm-scheduling/internal/scheduling"
)

const dateLayout = "2006-01-02"

type CreateRequestRequest struct {
	FarmerID      int64   `json:"farmer_id"`
	CenterID      int64   `json:"center_id"`
	PreferredDate string  `json:"preferred_date"`
	PreferredSlot *string `json:"preferred_slot,omitempty"`
	ContactPhone  string  `json:"contact_phone"`
	LocationNote  *string `json:"location_note,omitempty"`
}

type ApproveRequestRequest struct {
	ApprovedDate   string  `json:"approved_date"`
	StartTime      string  `json:"start_time"`
	EndTime        string  `json:"end_time"`
	FieldOfficerID int64   `json:"field_officer_id"`
	AdminNotes     *string `json:"admin_notes,omitempty"`
}

type RejectRequestRequest struct {
	Reason     string  `json:"reason"`
	AdminNotes *string `json:"admin_notes,omitempty"`
}

type RequestResponse struct {
	ID              int64   `json:"id"`
	FarmerID        int64   `json:"farmer_id"`
	CenterID        int64   `json:"center_id"`
	PreferredDate   string  `json:"preferred_date"`
	PreferredSlot   *string `json:"preferred_slot,omitempty"`
	ContactPhone    string  `json:"contact_phone"`
	LocationNote    *string `json:"location_note,omitempty"`
	Status          string  `json:"status"`
	AdminNotes      *string `json:"admin_notes,omitempty"`
	RejectionReason *string `json:"rejection_reason,omitempty"`
	ApprovedDate    *string `json:"approved_date,omitempty"`
	ApprovedStart   *string `json:"approved_start,omitempty"`
	ApprovedEnd     *string `json:"approved_end,omitempty"`
	FieldOfficerID  *int64  `json:"field_officer_id,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

type CreateScheduleRequest struct {
	FarmerID       int64   `json:"farmer_id"`
	CenterID       int64   `json:"center_id"`
	ScheduledDate  string  `json:"scheduled_date"`
	StartTime      string  `json:"start_time"`
	EndTime        string  `json:"end_time"`
	FieldOfficerID *int64  `json:"field_officer_id,omitempty"`
	ContactPhone   string  `json:"contact_phone"`
	AdminNotes     *string `json:"admin_notes,omitempty"`
}

type UpdateScheduleRequest struct {
	Status          *string `json:"status,omitempty"`
	StartTime       *string `json:"start_time,omitempty"`
	EndTime         *string `json:"end_time,omitempty"`
	AdminNotes      *string `json:"admin_notes,omitempty"`
	RejectionReason *string `json:"rejection_reason,omitempty"`
	FieldOfficerID  *int64  `json:"field_officer_id,omitempty"`
}

type ScheduleResponse struct {
	ID              int64   `json:"id"`
	RequestID       *int64  `json:"request_id,omitempty"`
	FarmerID        int64   `json:"farmer_id"`
	CenterID        int64   `json:"center_id"`
	ScheduledDate   string  `json:"scheduled_date"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	Status          string  `json:"status"`
	FieldOfficerID  *int64  `json:"field_officer_id,omitempty"`
	ContactPhone    string  `json:"contact_phone"`
	AdminNotes      *string `json:"admin_notes,omitempty"`
	RejectionReason *string `json:"rejection_reason,omitempty"`
	QRCodeURL       *string `json:"qr_code_url,omitempty"`
	QRCodeData      *string `json:"qr_code_data,omitempty"`
	CompletedAt     *string `json:"completed_at,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

type CreateSlotRequest struct {
	CenterID    int64  `json:"center_id"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	MaxBookings int    `json:"max_bookings,omitempty"`
}

type UpdateSlotRequest struct {
	MaxBookings *int  `json:"max_bookings,omitempty"`
	IsAvailable *bool `json:"is_available,omitempty"`
}

type SlotResponse struct {
	ID                int64  `json:"id"`
	CenterID          int64  `json:"center_id"`
	Date              string `json:"date"`
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	IsAvailable       bool   `json:"is_available"`
	MaxBookings       int    `json:"max_bookings"`
	CurrentBookings   int    `json:"current_bookings"`
	AvailableBookings int    `json:"available_bookings"`
}

type DayAvailabilityResponse struct {
	Date  string         `json:"date"`
	Slots []SlotResponse `json:"slots"`
}

type SetDateAvailabilityRequest struct {
	CenterID  int64  `json:"center_id"`
	Date      string `json:"date"`
	Available bool   `json:"available"`
	Force     bool   `json:"force,omitempty"`
}

type BulkDateAvailabilityRequest struct {
	CenterID  int64    `json:"center_id"`
	Dates     []string `json:"dates"`
	Available bool     `json:"available"`
	Force     bool     `json:"force,omitempty"`
}

type DateFailureResponse struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

type BulkAvailabilityResponse struct {
	Updated []string              `json:"updated"`
	Failed  []DateFailureResponse `json:"failed"`
}

type PagedResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Converters

func toRequestResponse(r scheduling.Request) RequestResponse {
	return RequestResponse{
		ID:              r.ID,
		FarmerID:        r.FarmerID,
		CenterID:        r.CenterID,
		PreferredDate:   r.PreferredDate.Format(dateLayout),
		PreferredSlot:   r.PreferredSlot,
		ContactPhone:    r.ContactPhone,
		LocationNote:    r.LocationNote,
		Status:          string(r.Status),
		AdminNotes:      r.AdminNotes,
		RejectionReason: r.RejectionReason,
		ApprovedDate:    formatDatePtr(r.ApprovedDate),
		ApprovedStart:   r.ApprovedStart,
		ApprovedEnd:     r.ApprovedEnd,
		FieldOfficerID:  r.FieldOfficerID,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
	}
}

func toScheduleResponse(s scheduling.Schedule) ScheduleResponse {
	return ScheduleResponse{
		ID:              s.ID,
		RequestID:       s.RequestID,
		FarmerID:        s.FarmerID,
		CenterID:        s.CenterID,
		ScheduledDate:   s.ScheduledDate.Format(dateLayout),
		StartTime:       s.StartTime,
		EndTime:         s.EndTime,
		Status:          string(s.Status),
		FieldOfficerID:  s.FieldOfficerID,
		ContactPhone:    s.ContactPhone,
		AdminNotes:      s.AdminNotes,
		RejectionReason: s.RejectionReason,
		QRCodeURL:       s.QRCodeURL,
		QRCodeData:      s.QRCodeData,
		CompletedAt:     formatTimePtr(s.CompletedAt),
		CreatedAt:       s.CreatedAt.Format(time.RFC3339),
	}
}

func toSlotResponse(s scheduling.TimeSlot) SlotResponse {
	return SlotResponse{
		ID:                s.ID,
		CenterID:          s.CenterID,
		Date:              s.SlotDate.Format(dateLayout),
		StartTime:         s.StartTime,
		EndTime:           s.EndTime,
		IsAvailable:       s.IsAvailable,
		MaxBookings:       s.MaxBookings,
		CurrentBookings:   s.CurrentBookings,
		AvailableBookings: s.AvailableBookings(),
	}
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
