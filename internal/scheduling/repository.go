package scheduling

import (
	"context"
	"errors"
	"time"
)

var (
	ErrRequestNotFound  = errors.New("request not found")
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrSlotNotFound     = errors.New("time slot not found")
	ErrSlotConflict     = errors.New("time slot already exists for this interval")
	ErrSlotInUse        = errors.New("time slot has bookings and cannot be deleted")
)

// RequestStatusUpdate carries the fields an admin sets alongside a
// request status transition. Nil fields are left untouched.
type RequestStatusUpdate struct {
	AdminNotes      *string
	RejectionReason *string
	ApprovedDate    *time.Time
	ApprovedStart   *string
	ApprovedEnd     *string
	FieldOfficerID  *int64
	ClearApproval   bool
}

// ScheduleUpdate is a field-level partial update; nil fields are left
// untouched. Status transitions are validated by the service, not here.
type ScheduleUpdate struct {
	Status          *ScheduleStatus
	StartTime       *string
	EndTime         *string
	AdminNotes      *string
	RejectionReason *string
	FieldOfficerID  *int64
}

// TimeSlotUpdate mutates slot attributes an admin may edit.
type TimeSlotUpdate struct {
	MaxBookings *int
	IsAvailable *bool
}

// TimeSlotStore owns per-center, per-date, per-interval capacity records.
// It is state-agnostic about requests and schedules except for the
// HasActiveBookings guard.
type TimeSlotStore interface {
	CreateSlot(ctx context.Context, slot *TimeSlot) error
	GetSlotByID(ctx context.Context, id int64) (*TimeSlot, error)
	GetSlotByInterval(ctx context.Context, centerID int64, date time.Time, start, end string) (*TimeSlot, error)
	UpdateSlot(ctx context.Context, id int64, upd TimeSlotUpdate) (*TimeSlot, error)
	DeleteSlot(ctx context.Context, id int64) error

	// BookSlot increments current_bookings only while it is below
	// max_bookings, as a single conditional update. It reports whether
	// the booking was admitted. This is the sole admission-control
	// primitive; see ReleaseSlot for the inverse.
	BookSlot(ctx context.Context, id int64) (bool, error)

	// ReleaseSlot decrements current_bookings, floored at zero, so a
	// double release is a no-op.
	ReleaseSlot(ctx context.Context, id int64) error

	ListAvailableSlots(ctx context.Context, centerID int64, from, to time.Time) ([]DayAvailability, error)

	// HasActiveBookings reports whether any non-terminal schedule or
	// pending request references the center/date.
	HasActiveBookings(ctx context.Context, centerID int64, date time.Time) (bool, error)

	// SetDateAvailability flips is_available on every interval of the
	// date and returns the number of slots touched.
	SetDateAvailability(ctx context.Context, centerID int64, date time.Time, available bool) (int, error)
}

// RequestStore owns farmer-submitted preference records. It does not
// enforce status transitions; the service layer does.
type RequestStore interface {
	CreateRequest(ctx context.Context, req *Request) error
	GetRequestByID(ctx context.Context, id int64) (*Request, error)

	// UpdateRequestStatus applies the transition only when the current
	// status equals from, and returns ErrRequestNotFound when no row
	// matched. The service distinguishes a missing request from a
	// concurrent transition by re-fetching.
	UpdateRequestStatus(ctx context.Context, id int64, from, to RequestStatus, upd RequestStatusUpdate) (*Request, error)

	SearchRequests(ctx context.Context, f RequestFilter, page, limit int) ([]Request, int, error)
	ListRequestsByFarmer(ctx context.Context, farmerID int64) ([]Request, error)
	ListPendingRequests(ctx context.Context) ([]Request, error)
}

// ScheduleStore owns confirmed appointments.
type ScheduleStore interface {
	CreateSchedule(ctx context.Context, sch *Schedule) error
	GetScheduleByID(ctx context.Context, id int64) (*Schedule, error)
	UpdateSchedule(ctx context.Context, id int64, upd ScheduleUpdate) (*Schedule, error)
	AttachQRCredential(ctx context.Context, id int64, url, payload string) error

	// MarkScheduleCompleted sets status=completed and completed_at=now,
	// and reports false when the schedule does not exist.
	MarkScheduleCompleted(ctx context.Context, id int64, now time.Time) (bool, error)

	SearchSchedules(ctx context.Context, f ScheduleFilter, page, limit int) ([]Schedule, int, error)
	ListSchedulesByFarmer(ctx context.Context, farmerID int64) ([]Schedule, error)

	// ListTodaySchedules returns pending/approved schedules for the
	// given calendar date, ordered by start time. Used for field-officer
	// daily manifests.
	ListTodaySchedules(ctx context.Context, today time.Time) ([]Schedule, error)
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	TimeSlotStore
	RequestStore
	ScheduleStore

	InsertEvent(ctx context.Context, ev EventLog) error
}
