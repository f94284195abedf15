package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/agroconnect/farm-scheduling/internal/notify"
	"github.com/agroconnect/farm-scheduling/internal/qr"
	redisclient "github.com/agroconnect/farm-scheduling/internal/redis"
)

const (
	EventRequestCreated    = "REQUEST_CREATED"
	EventRequestApproved   = "REQUEST_APPROVED"
	EventRequestRejected   = "REQUEST_REJECTED"
	EventRequestCancelled  = "REQUEST_CANCELLED"
	EventScheduleCreated   = "SCHEDULE_CREATED"
	EventScheduleUpdated   = "SCHEDULE_UPDATED"
	EventScheduleCompleted = "SCHEDULE_COMPLETED"
	EventSlotBooked        = "SLOT_BOOKED"
	EventSlotReleased      = "SLOT_RELEASED"
	EventDateToggled       = "DATE_AVAILABILITY_TOGGLED"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrSlotFull            = errors.New("time slot is fully booked")
	ErrSlotUnavailable     = errors.New("time slot is not available")
	ErrSlotBusy            = errors.New("slot is currently being booked, please retry")
	ErrDateHasAppointments = errors.New("date has active appointments")
)

var timePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Service orchestrates the request/approval/schedule workflow: it owns
// the status transition guards, books and releases slot capacity, issues
// QR credentials and fires best-effort notifications.
type Service struct {
	repo     Repository
	locker   redisclient.Locker
	qr       *qr.Service
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, qrSvc *qr.Service, notifier notify.Notifier, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		locker:   locker,
		qr:       qrSvc,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Requests

type CreateRequestInput struct {
	FarmerID      int64
	CenterID      int64
	PreferredDate time.Time
	PreferredSlot *string
	ContactPhone  string
	LocationNote  *string
}

func (s *Service) CreateRequest(ctx context.Context, in CreateRequestInput) (*Request, error) {
	if in.FarmerID <= 0 || in.CenterID <= 0 {
		return nil, fmt.Errorf("%w: farmer_id and center_id are required", ErrValidation)
	}
	if in.ContactPhone == "" {
		return nil, fmt.Errorf("%w: contact_phone is required", ErrValidation)
	}
	if in.PreferredDate.IsZero() {
		return nil, fmt.Errorf("%w: preferred_date is required", ErrValidation)
	}

	req := &Request{
		FarmerID:      in.FarmerID,
		CenterID:      in.CenterID,
		PreferredDate: in.PreferredDate,
		PreferredSlot: in.PreferredSlot,
		ContactPhone:  in.ContactPhone,
		LocationNote:  in.LocationNote,
	}
	if err := s.repo.CreateRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.logEvent(ctx, EventRequestCreated, &req.ID, nil, map[string]any{
		"farmer_id":      req.FarmerID,
		"center_id":      req.CenterID,
		"preferred_date": req.PreferredDate.Format("2006-01-02"),
	})

	return req, nil
}

func (s *Service) GetRequest(ctx context.Context, id int64) (*Request, error) {
	return s.repo.GetRequestByID(ctx, id)
}

func (s *Service) SearchRequests(ctx context.Context, f RequestFilter, page, limit int) ([]Request, int, error) {
	page, limit = clampPage(page, limit)
	return s.repo.SearchRequests(ctx, f, page, limit)
}

func (s *Service) ListRequestsByFarmer(ctx context.Context, farmerID int64) ([]Request, error) {
	return s.repo.ListRequestsByFarmer(ctx, farmerID)
}

func (s *Service) ListPendingRequests(ctx context.Context) ([]Request, error) {
	return s.repo.ListPendingRequests(ctx)
}

type ApprovalInput struct {
	Date           time.Time
	StartTime      string
	EndTime        string
	FieldOfficerID int64
	AdminNotes     *string
}

// ApproveRequest runs the central approval orchestration. Under the
// per-interval lock it books slot capacity, transitions the request out
// of pending with a conditional update, and synthesizes the approved
// schedule with its QR credential. Any failure after the booking
// releases the capacity and reverts the request to pending, so a partial
// approval never survives. The confirmation SMS is sent after the
// critical section and never affects the outcome.
func (s *Service) ApproveRequest(ctx context.Context, id int64, in ApprovalInput) (*Request, *Schedule, error) {
	if err := validateInterval(in.StartTime, in.EndTime); err != nil {
		return nil, nil, err
	}
	if in.Date.IsZero() {
		return nil, nil, fmt.Errorf("%w: approved date is required", ErrValidation)
	}
	if in.FieldOfficerID <= 0 {
		return nil, nil, fmt.Errorf("%w: field_officer_id is required", ErrValidation)
	}

	req, err := s.repo.GetRequestByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !req.Status.CanTransition(RequestApproved) {
		return nil, nil, ErrInvalidTransition
	}

	var (
		approved *Request
		sched    *Schedule
		cred     qr.Credential
	)

	lockKey := redisclient.SlotLockKey(req.CenterID, in.Date, in.StartTime, in.EndTime)
	err = s.locker.WithSlotLock(ctx, lockKey, func(ctx context.Context) error {
		slot, err := s.slotForInterval(ctx, req.CenterID, in.Date, in.StartTime, in.EndTime)
		if err != nil {
			return err
		}
		if !slot.IsAvailable {
			return ErrSlotUnavailable
		}

		booked, err := s.repo.BookSlot(ctx, slot.ID)
		if err != nil {
			return fmt.Errorf("book slot: %w", err)
		}
		if !booked {
			return ErrSlotFull
		}
		s.logEvent(ctx, EventSlotBooked, &id, nil, map[string]any{"slot_id": slot.ID})

		approved, err = s.repo.UpdateRequestStatus(ctx, id, RequestPending, RequestApproved, RequestStatusUpdate{
			AdminNotes:     in.AdminNotes,
			ApprovedDate:   &in.Date,
			ApprovedStart:  &in.StartTime,
			ApprovedEnd:    &in.EndTime,
			FieldOfficerID: &in.FieldOfficerID,
		})
		if err != nil {
			s.releaseQuietly(ctx, slot.ID, id)
			if errors.Is(err, ErrRequestNotFound) {
				// The request left pending between our fetch and the
				// conditional update.
				return ErrInvalidTransition
			}
			return fmt.Errorf("transition request: %w", err)
		}

		sched = &Schedule{
			RequestID:      &id,
			FarmerID:       req.FarmerID,
			CenterID:       req.CenterID,
			ScheduledDate:  in.Date,
			StartTime:      in.StartTime,
			EndTime:        in.EndTime,
			Status:         ScheduleApproved,
			FieldOfficerID: &in.FieldOfficerID,
			ContactPhone:   req.ContactPhone,
			AdminNotes:     in.AdminNotes,
		}
		if err := s.repo.CreateSchedule(ctx, sched); err != nil {
			s.releaseQuietly(ctx, slot.ID, id)
			s.revertApproval(ctx, id)
			return fmt.Errorf("create schedule: %w", err)
		}

		cred = s.qr.Issue(sched.ID, sched.FarmerID, sched.CenterID, sched.ScheduledDate)
		if err := s.repo.AttachQRCredential(ctx, sched.ID, credentialURL(cred), cred.UniqueID); err != nil {
			// Degraded but successful: the approval stands, the farmer
			// still receives the credential by SMS.
			s.logger.Warn("attach qr credential failed",
				zap.Int64("schedule_id", sched.ID), zap.Error(err))
		} else {
			u := credentialURL(cred)
			sched.QRCodeURL = &u
			sched.QRCodeData = &cred.UniqueID
		}

		s.logEvent(ctx, EventRequestApproved, &id, &sched.ID, map[string]any{
			"slot_id":          slot.ID,
			"scheduled_date":   in.Date.Format("2006-01-02"),
			"start_time":       in.StartTime,
			"end_time":         in.EndTime,
			"field_officer_id": in.FieldOfficerID,
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, nil, ErrSlotBusy
		}
		return nil, nil, err
	}

	s.sendSMS(ctx, req.ContactPhone, fmt.Sprintf(
		"Your soil test visit is confirmed for %s, %s-%s. Show code %s on arrival. Verify: %s",
		in.Date.Format("2006-01-02"), in.StartTime, in.EndTime, cred.UniqueID, cred.VerificationURL))

	return approved, sched, nil
}

func (s *Service) RejectRequest(ctx context.Context, id int64, reason string, notes *string) (*Request, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", ErrValidation)
	}

	req, err := s.repo.GetRequestByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.Status.CanTransition(RequestRejected) {
		return nil, ErrInvalidTransition
	}

	rejected, err := s.repo.UpdateRequestStatus(ctx, id, RequestPending, RequestRejected, RequestStatusUpdate{
		RejectionReason: &reason,
		AdminNotes:      notes,
	})
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("reject request: %w", err)
	}

	s.logEvent(ctx, EventRequestRejected, &id, nil, map[string]any{"reason": reason})
	s.sendSMS(ctx, req.ContactPhone, fmt.Sprintf(
		"Your soil test request could not be scheduled: %s. You may submit a new request.", reason))

	return rejected, nil
}

// CancelRequest is the farmer-side withdrawal of a still-pending request.
func (s *Service) CancelRequest(ctx context.Context, id int64) (*Request, error) {
	req, err := s.repo.GetRequestByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.Status.CanTransition(RequestCancelled) {
		return nil, ErrInvalidTransition
	}

	cancelled, err := s.repo.UpdateRequestStatus(ctx, id, RequestPending, RequestCancelled, RequestStatusUpdate{})
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("cancel request: %w", err)
	}

	s.logEvent(ctx, EventRequestCancelled, &id, nil, nil)
	return cancelled, nil
}

// Schedules

type CreateScheduleInput struct {
	FarmerID       int64
	CenterID       int64
	Date           time.Time
	StartTime      string
	EndTime        string
	FieldOfficerID *int64
	ContactPhone   string
	AdminNotes     *string
}

// CreateSchedule is the ad-hoc admin flow that bypasses a request. The
// schedule starts pending; capacity is booked when it is approved.
func (s *Service) CreateSchedule(ctx context.Context, in CreateScheduleInput) (*Schedule, error) {
	if err := validateInterval(in.StartTime, in.EndTime); err != nil {
		return nil, err
	}
	if in.FarmerID <= 0 || in.CenterID <= 0 {
		return nil, fmt.Errorf("%w: farmer_id and center_id are required", ErrValidation)
	}
	if in.ContactPhone == "" {
		return nil, fmt.Errorf("%w: contact_phone is required", ErrValidation)
	}
	if in.Date.IsZero() {
		return nil, fmt.Errorf("%w: scheduled date is required", ErrValidation)
	}

	sched := &Schedule{
		FarmerID:       in.FarmerID,
		CenterID:       in.CenterID,
		ScheduledDate:  in.Date,
		StartTime:      in.StartTime,
		EndTime:        in.EndTime,
		Status:         SchedulePending,
		FieldOfficerID: in.FieldOfficerID,
		ContactPhone:   in.ContactPhone,
		AdminNotes:     in.AdminNotes,
	}
	if err := s.repo.CreateSchedule(ctx, sched); err != nil {
		return nil, fmt.Errorf("create schedule: %w", err)
	}

	cred := s.qr.Issue(sched.ID, sched.FarmerID, sched.CenterID, sched.ScheduledDate)
	if err := s.repo.AttachQRCredential(ctx, sched.ID, credentialURL(cred), cred.UniqueID); err != nil {
		s.logger.Warn("attach qr credential failed",
			zap.Int64("schedule_id", sched.ID), zap.Error(err))
	} else {
		u := credentialURL(cred)
		sched.QRCodeURL = &u
		sched.QRCodeData = &cred.UniqueID
	}

	s.logEvent(ctx, EventScheduleCreated, nil, &sched.ID, map[string]any{
		"farmer_id":      sched.FarmerID,
		"center_id":      sched.CenterID,
		"scheduled_date": sched.ScheduledDate.Format("2006-01-02"),
	})
	s.sendSMS(ctx, in.ContactPhone, fmt.Sprintf(
		"A soil test visit has been scheduled for you on %s, %s-%s. Show code %s on arrival.",
		in.Date.Format("2006-01-02"), in.StartTime, in.EndTime, cred.UniqueID))

	return sched, nil
}

func (s *Service) GetSchedule(ctx context.Context, id int64) (*Schedule, error) {
	return s.repo.GetScheduleByID(ctx, id)
}

func (s *Service) SearchSchedules(ctx context.Context, f ScheduleFilter, page, limit int) ([]Schedule, int, error) {
	page, limit = clampPage(page, limit)
	return s.repo.SearchSchedules(ctx, f, page, limit)
}

func (s *Service) ListSchedulesByFarmer(ctx context.Context, farmerID int64) ([]Schedule, error) {
	return s.repo.ListSchedulesByFarmer(ctx, farmerID)
}

// ListTodaySchedules is the field-officer daily manifest.
func (s *Service) ListTodaySchedules(ctx context.Context) ([]Schedule, error) {
	return s.repo.ListTodaySchedules(ctx, s.now())
}

// SendDailyReminders texts every farmer with a pending or approved visit
// today. Delivery stays best-effort per schedule; the count of attempted
// reminders is returned for the worker's log line.
func (s *Service) SendDailyReminders(ctx context.Context) (int, error) {
	schedules, err := s.repo.ListTodaySchedules(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("list today schedules: %w", err)
	}

	for _, sch := range schedules {
		s.sendSMS(ctx, sch.ContactPhone, fmt.Sprintf(
			"Reminder: your soil test visit is today, %s-%s. Please have your QR code ready.",
			sch.StartTime, sch.EndTime))
	}

	return len(schedules), nil
}

// UpdateSchedule applies a partial update, enforcing the transition table
// when the status changes. Approving books the interval's capacity;
// rejecting or cancelling an approved schedule releases it. Completion
// must go through MarkScheduleCompleted so completed_at is set.
func (s *Service) UpdateSchedule(ctx context.Context, id int64, upd ScheduleUpdate) (*Schedule, error) {
	if upd.StartTime != nil || upd.EndTime != nil {
		start, end := valueOr(upd.StartTime, ""), valueOr(upd.EndTime, "")
		if start != "" && !timePattern.MatchString(start) {
			return nil, fmt.Errorf("%w: start_time must be HH:MM", ErrValidation)
		}
		if end != "" && !timePattern.MatchString(end) {
			return nil, fmt.Errorf("%w: end_time must be HH:MM", ErrValidation)
		}
	}

	current, err := s.repo.GetScheduleByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Status != nil && *upd.Status != current.Status {
		if *upd.Status == ScheduleCompleted {
			return nil, fmt.Errorf("%w: completion must go through the completion endpoint", ErrValidation)
		}
		if !current.Status.CanTransition(*upd.Status) {
			return nil, ErrInvalidTransition
		}

		switch {
		case current.Status == SchedulePending && *upd.Status == ScheduleApproved:
			if err := s.bookScheduleCapacity(ctx, current); err != nil {
				return nil, err
			}
		case current.Status == ScheduleApproved:
			// rejected or cancelled: give the capacity back
			s.releaseScheduleCapacity(ctx, current)
		}
	}

	updated, err := s.repo.UpdateSchedule(ctx, id, upd)
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, EventScheduleUpdated, updated.RequestID, &id, nil)
	return updated, nil
}

// MarkScheduleCompleted closes the loop after the field visit. It is safe
// to call on an already-completed schedule: the call no-ops and
// completed_at is never cleared.
func (s *Service) MarkScheduleCompleted(ctx context.Context, id int64) (*Schedule, error) {
	current, err := s.repo.GetScheduleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == ScheduleCompleted {
		return current, nil
	}
	if !current.Status.CanTransition(ScheduleCompleted) {
		return nil, ErrInvalidTransition
	}

	ok, err := s.repo.MarkScheduleCompleted(ctx, id, s.now())
	if err != nil {
		return nil, fmt.Errorf("mark schedule completed: %w", err)
	}
	if !ok {
		return nil, ErrScheduleNotFound
	}

	s.logEvent(ctx, EventScheduleCompleted, current.RequestID, &id, nil)
	return s.repo.GetScheduleByID(ctx, id)
}

// Time slot administration

type CreateSlotInput struct {
	CenterID    int64
	Date        time.Time
	StartTime   string
	EndTime     string
	MaxBookings int
}

func (s *Service) CreateTimeSlot(ctx context.Context, in CreateSlotInput) (*TimeSlot, error) {
	if err := validateInterval(in.StartTime, in.EndTime); err != nil {
		return nil, err
	}
	if in.CenterID <= 0 {
		return nil, fmt.Errorf("%w: center_id is required", ErrValidation)
	}
	if in.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrValidation)
	}
	if in.MaxBookings < 0 {
		return nil, fmt.Errorf("%w: max_bookings must be positive", ErrValidation)
	}

	slot := &TimeSlot{
		CenterID:    in.CenterID,
		SlotDate:    in.Date,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		MaxBookings: in.MaxBookings,
	}
	if err := s.repo.CreateSlot(ctx, slot); err != nil {
		return nil, err
	}
	return slot, nil
}

func (s *Service) UpdateTimeSlot(ctx context.Context, id int64, upd TimeSlotUpdate) (*TimeSlot, error) {
	if upd.MaxBookings != nil {
		if *upd.MaxBookings <= 0 {
			return nil, fmt.Errorf("%w: max_bookings must be positive", ErrValidation)
		}
		current, err := s.repo.GetSlotByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if *upd.MaxBookings < current.CurrentBookings {
			return nil, fmt.Errorf("%w: max_bookings cannot drop below current bookings (%d)",
				ErrValidation, current.CurrentBookings)
		}
	}
	return s.repo.UpdateSlot(ctx, id, upd)
}

func (s *Service) DeleteTimeSlot(ctx context.Context, id int64) error {
	return s.repo.DeleteSlot(ctx, id)
}

func (s *Service) ListAvailableSlots(ctx context.Context, centerID int64, from, to time.Time) ([]DayAvailability, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: date_to precedes date_from", ErrValidation)
	}
	return s.repo.ListAvailableSlots(ctx, centerID, from, to)
}

func (s *Service) DateHasAppointments(ctx context.Context, centerID int64, date time.Time) (bool, error) {
	return s.repo.HasActiveBookings(ctx, centerID, date)
}

// SetDateAvailability toggles every interval of a date. Disabling a date
// that still has active appointments is refused unless forced.
func (s *Service) SetDateAvailability(ctx context.Context, centerID int64, date time.Time, available, force bool) (int, error) {
	if !available && !force {
		active, err := s.repo.HasActiveBookings(ctx, centerID, date)
		if err != nil {
			return 0, err
		}
		if active {
			return 0, ErrDateHasAppointments
		}
	}

	n, err := s.repo.SetDateAvailability(ctx, centerID, date, available)
	if err != nil {
		return 0, err
	}

	s.logEvent(ctx, EventDateToggled, nil, nil, map[string]any{
		"center_id": centerID,
		"date":      date.Format("2006-01-02"),
		"available": available,
		"slots":     n,
	})
	return n, nil
}

// BulkUpdateDateAvailability applies the per-date logic across a list and
// reports partial success instead of failing the whole batch.
func (s *Service) BulkUpdateDateAvailability(ctx context.Context, centerID int64, dates []time.Time, available, force bool) (BulkAvailabilityReport, error) {
	var report BulkAvailabilityReport

	for _, d := range dates {
		day := d.Format("2006-01-02")
		if _, err := s.SetDateAvailability(ctx, centerID, d, available, force); err != nil {
			reason := "internal error"
			if errors.Is(err, ErrDateHasAppointments) {
				reason = ErrDateHasAppointments.Error()
			}
			report.Failed = append(report.Failed, DateFailure{Date: day, Reason: reason})
			continue
		}
		report.Updated = append(report.Updated, day)
	}

	return report, nil
}

// Internals

// slotForInterval fetches the slot for the tuple, creating a
// single-capacity one when the admin approves into an interval with no
// explicit inventory yet.
func (s *Service) slotForInterval(ctx context.Context, centerID int64, date time.Time, start, end string) (*TimeSlot, error) {
	slot, err := s.repo.GetSlotByInterval(ctx, centerID, date, start, end)
	if err == nil {
		return slot, nil
	}
	if !errors.Is(err, ErrSlotNotFound) {
		return nil, fmt.Errorf("load slot: %w", err)
	}

	slot = &TimeSlot{CenterID: centerID, SlotDate: date, StartTime: start, EndTime: end, MaxBookings: 1}
	if err := s.repo.CreateSlot(ctx, slot); err != nil {
		if errors.Is(err, ErrSlotConflict) {
			return s.repo.GetSlotByInterval(ctx, centerID, date, start, end)
		}
		return nil, fmt.Errorf("create slot: %w", err)
	}
	return slot, nil
}

func (s *Service) bookScheduleCapacity(ctx context.Context, sched *Schedule) error {
	slot, err := s.slotForInterval(ctx, sched.CenterID, sched.ScheduledDate, sched.StartTime, sched.EndTime)
	if err != nil {
		return err
	}
	if !slot.IsAvailable {
		return ErrSlotUnavailable
	}
	booked, err := s.repo.BookSlot(ctx, slot.ID)
	if err != nil {
		return fmt.Errorf("book slot: %w", err)
	}
	if !booked {
		return ErrSlotFull
	}
	s.logEvent(ctx, EventSlotBooked, sched.RequestID, &sched.ID, map[string]any{"slot_id": slot.ID})
	return nil
}

func (s *Service) releaseScheduleCapacity(ctx context.Context, sched *Schedule) {
	slot, err := s.repo.GetSlotByInterval(ctx, sched.CenterID, sched.ScheduledDate, sched.StartTime, sched.EndTime)
	if err != nil {
		if !errors.Is(err, ErrSlotNotFound) {
			s.logger.Warn("load slot for release failed", zap.Int64("schedule_id", sched.ID), zap.Error(err))
		}
		return
	}
	s.releaseQuietly(ctx, slot.ID, sched.ID)
}

func (s *Service) releaseQuietly(ctx context.Context, slotID, refID int64) {
	if err := s.repo.ReleaseSlot(ctx, slotID); err != nil {
		s.logger.Error("release slot failed",
			zap.Int64("slot_id", slotID), zap.Int64("ref_id", refID), zap.Error(err))
		return
	}
	s.logEvent(ctx, EventSlotReleased, nil, nil, map[string]any{"slot_id": slotID})
}

func (s *Service) revertApproval(ctx context.Context, id int64) {
	_, err := s.repo.UpdateRequestStatus(ctx, id, RequestApproved, RequestPending, RequestStatusUpdate{
		ClearApproval: true,
	})
	if err != nil {
		s.logger.Error("revert approval failed", zap.Int64("request_id", id), zap.Error(err))
	}
}

func (s *Service) sendSMS(ctx context.Context, phone, message string) {
	if s.notifier == nil || phone == "" {
		return
	}

	// Detached from the caller's cancellation: a dropped client
	// connection must not suppress the notification, and a gateway
	// failure must not surface as an operation failure.
	smsCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()

	if err := s.notifier.SendSMS(smsCtx, phone, message); err != nil {
		s.logger.Warn("sms delivery failed", zap.String("phone", phone), zap.Error(err))
	}
}

func (s *Service) logEvent(ctx context.Context, eventType string, requestID, scheduleID *int64, payload map[string]any) {
	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			s.logger.Warn("marshal event payload failed", zap.String("event", eventType), zap.Error(err))
			data = nil
		}
	}

	ev := EventLog{
		EventType:  eventType,
		RequestID:  requestID,
		ScheduleID: scheduleID,
		Payload:    data,
		CreatedAt:  s.now(),
	}
	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Warn("insert event log failed", zap.String("event", eventType), zap.Error(err))
	}
}

func credentialURL(c qr.Credential) string {
	if c.ImageURL != "" {
		return c.ImageURL
	}
	return c.VerificationURL
}

func validateInterval(start, end string) error {
	if !timePattern.MatchString(start) {
		return fmt.Errorf("%w: start_time must be HH:MM", ErrValidation)
	}
	if !timePattern.MatchString(end) {
		return fmt.Errorf("%w: end_time must be HH:MM", ErrValidation)
	}
	if end <= start {
		return fmt.Errorf("%w: end_time must be after start_time", ErrValidation)
	}
	return nil
}

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
