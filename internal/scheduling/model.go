package scheduling

import "time"

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestRejected  RequestStatus = "rejected"
	RequestCancelled RequestStatus = "cancelled"
)

type ScheduleStatus string

const (
	SchedulePending   ScheduleStatus = "pending"
	ScheduleApproved  ScheduleStatus = "approved"
	ScheduleCompleted ScheduleStatus = "completed"
	ScheduleRejected  ScheduleStatus = "rejected"
	ScheduleCancelled ScheduleStatus = "cancelled"
)

// CanTransition is the closed transition table for requests. A request
// changes state exactly once: out of pending.
func (s RequestStatus) CanTransition(to RequestStatus) bool {
	if s != RequestPending {
		return false
	}
	switch to {
	case RequestApproved, RequestRejected, RequestCancelled:
		return true
	}
	return false
}

// CanTransition is the closed transition table for schedules.
// completed, rejected and cancelled are terminal.
func (s ScheduleStatus) CanTransition(to ScheduleStatus) bool {
	switch s {
	case SchedulePending:
		return to == ScheduleApproved || to == ScheduleRejected || to == ScheduleCancelled
	case ScheduleApproved:
		return to == ScheduleCompleted || to == ScheduleRejected || to == ScheduleCancelled
	}
	return false
}

// IsTerminal reports whether no further transition is permitted.
func (s ScheduleStatus) IsTerminal() bool {
	return s == ScheduleCompleted || s == ScheduleRejected || s == ScheduleCancelled
}

// TimeSlot is a capacity-bounded (center, date, interval) booking unit.
// Times are wall-clock "HH:MM" strings scoped to the center.
type TimeSlot struct {
	ID              int64
	CenterID        int64
	SlotDate        time.Time
	StartTime       string
	EndTime         string
	IsAvailable     bool
	MaxBookings     int
	CurrentBookings int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AvailableBookings is the remaining capacity of the slot.
func (t *TimeSlot) AvailableBookings() int {
	n := t.MaxBookings - t.CurrentBookings
	if n < 0 {
		return 0
	}
	return n
}

// Request is a farmer's unconfirmed preference for a soil-testing visit.
// The approved_* fields are only set when an admin approves it.
type Request struct {
	ID              int64
	FarmerID        int64
	CenterID        int64
	PreferredDate   time.Time
	PreferredSlot   *string
	ContactPhone    string
	LocationNote    *string
	Status          RequestStatus
	AdminNotes      *string
	RejectionReason *string
	ApprovedDate    *time.Time
	ApprovedStart   *string
	ApprovedEnd     *string
	FieldOfficerID  *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Schedule is a confirmed appointment with date, interval and field
// officer assigned. RequestID is nil for schedules created directly.
type Schedule struct {
	ID              int64
	RequestID       *int64
	FarmerID        int64
	CenterID        int64
	ScheduledDate   time.Time
	StartTime       string
	EndTime         string
	Status          ScheduleStatus
	FieldOfficerID  *int64
	ContactPhone    string
	AdminNotes      *string
	RejectionReason *string
	QRCodeURL       *string
	QRCodeData      *string
	CompletedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EventLog is an append-only record of a scheduling action.
type EventLog struct {
	ID         int64
	EventType  string
	RequestID  *int64
	ScheduleID *int64
	Payload    []byte
	CreatedAt  time.Time
}

// RequestFilter narrows request searches. Nil fields match everything.
type RequestFilter struct {
	Status   *RequestStatus
	CenterID *int64
	FarmerID *int64
	DateFrom *time.Time
	DateTo   *time.Time
}

// ScheduleFilter narrows schedule searches. Nil fields match everything.
type ScheduleFilter struct {
	Status         *ScheduleStatus
	CenterID       *int64
	FarmerID       *int64
	FieldOfficerID *int64
	DateFrom       *time.Time
	DateTo         *time.Time
}

// SlotAvailability annotates a slot with its remaining capacity.
type SlotAvailability struct {
	Slot              TimeSlot
	AvailableBookings int
}

// DayAvailability groups the available intervals of one calendar date.
type DayAvailability struct {
	Date  time.Time
	Slots []SlotAvailability
}

// DateFailure names a date a bulk availability update could not change.
type DateFailure struct {
	Date   string
	Reason string
}

// BulkAvailabilityReport is the partial-success outcome of a bulk
// date-availability update.
type BulkAvailabilityReport struct {
	Updated []string
	Failed  []DateFailure
}

// DateOnly normalizes t to midnight UTC so calendar dates compare by value.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
