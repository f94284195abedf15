package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is a mutex-guarded Repository used in tests and local
// development. It mirrors the conditional-update semantics of the
// Postgres implementation, in particular the compare-and-swap behavior
// of BookSlot and UpdateRequestStatus.
type MemoryRepository struct {
	mu sync.Mutex

	slots     map[int64]*TimeSlot
	requests  map[int64]*Request
	schedules map[int64]*Schedule
	events    []EventLog

	nextSlotID     int64
	nextRequestID  int64
	nextScheduleID int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		slots:     make(map[int64]*TimeSlot),
		requests:  make(map[int64]*Request),
		schedules: make(map[int64]*Schedule),
	}
}

// TimeSlotStore

func (m *MemoryRepository) CreateSlot(_ context.Context, slot *TimeSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	date := DateOnly(slot.SlotDate)
	for _, s := range m.slots {
		if s.CenterID == slot.CenterID && s.SlotDate.Equal(date) && s.StartTime == slot.StartTime && s.EndTime == slot.EndTime {
			return ErrSlotConflict
		}
	}

	m.nextSlotID++
	now := time.Now()

	slot.ID = m.nextSlotID
	slot.SlotDate = date
	slot.IsAvailable = true
	slot.CurrentBookings = 0
	if slot.MaxBookings <= 0 {
		slot.MaxBookings = 1
	}
	slot.CreatedAt = now
	slot.UpdatedAt = now

	cp := *slot
	m.slots[slot.ID] = &cp
	return nil
}

func (m *MemoryRepository) GetSlotByID(_ context.Context, id int64) (*TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryRepository) GetSlotByInterval(_ context.Context, centerID int64, date time.Time, start, end string) (*TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := DateOnly(date)
	for _, s := range m.slots {
		if s.CenterID == centerID && s.SlotDate.Equal(d) && s.StartTime == start && s.EndTime == end {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrSlotNotFound
}

func (m *MemoryRepository) UpdateSlot(_ context.Context, id int64, upd TimeSlotUpdate) (*TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	if upd.MaxBookings != nil {
		s.MaxBookings = *upd.MaxBookings
	}
	if upd.IsAvailable != nil {
		s.IsAvailable = *upd.IsAvailable
	}
	s.UpdatedAt = time.Now()

	cp := *s
	return &cp, nil
}

func (m *MemoryRepository) DeleteSlot(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[id]
	if !ok {
		return ErrSlotNotFound
	}
	if s.CurrentBookings > 0 {
		return ErrSlotInUse
	}
	delete(m.slots, id)
	return nil
}

func (m *MemoryRepository) BookSlot(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[id]
	if !ok {
		return false, ErrSlotNotFound
	}
	if s.CurrentBookings >= s.MaxBookings {
		return false, nil
	}
	s.CurrentBookings++
	s.UpdatedAt = time.Now()
	return true, nil
}

func (m *MemoryRepository) ReleaseSlot(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[id]
	if !ok {
		return ErrSlotNotFound
	}
	if s.CurrentBookings > 0 {
		s.CurrentBookings--
		s.UpdatedAt = time.Now()
	}
	return nil
}

func (m *MemoryRepository) ListAvailableSlots(_ context.Context, centerID int64, from, to time.Time) ([]DayAvailability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fromD, toD := DateOnly(from), DateOnly(to)

	var matched []TimeSlot
	for _, s := range m.slots {
		if s.CenterID != centerID || !s.IsAvailable {
			continue
		}
		if s.SlotDate.Before(fromD) || s.SlotDate.After(toD) {
			continue
		}
		matched = append(matched, *s)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].SlotDate.Equal(matched[j].SlotDate) {
			return matched[i].SlotDate.Before(matched[j].SlotDate)
		}
		return matched[i].StartTime < matched[j].StartTime
	})

	var days []DayAvailability
	for _, s := range matched {
		entry := SlotAvailability{Slot: s, AvailableBookings: s.AvailableBookings()}
		if n := len(days); n > 0 && days[n-1].Date.Equal(s.SlotDate) {
			days[n-1].Slots = append(days[n-1].Slots, entry)
		} else {
			days = append(days, DayAvailability{Date: s.SlotDate, Slots: []SlotAvailability{entry}})
		}
	}
	return days, nil
}

func (m *MemoryRepository) HasActiveBookings(_ context.Context, centerID int64, date time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := DateOnly(date)
	for _, sch := range m.schedules {
		if sch.CenterID == centerID && sch.ScheduledDate.Equal(d) && !sch.Status.IsTerminal() {
			return true, nil
		}
	}
	for _, req := range m.requests {
		if req.CenterID == centerID && req.PreferredDate.Equal(d) && req.Status == RequestPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryRepository) SetDateAvailability(_ context.Context, centerID int64, date time.Time, available bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := DateOnly(date)
	count := 0
	for _, s := range m.slots {
		if s.CenterID == centerID && s.SlotDate.Equal(d) {
			s.IsAvailable = available
			s.UpdatedAt = time.Now()
			count++
		}
	}
	return count, nil
}

// RequestStore

func (m *MemoryRepository) CreateRequest(_ context.Context, req *Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextRequestID++
	now := time.Now()

	req.ID = m.nextRequestID
	req.PreferredDate = DateOnly(req.PreferredDate)
	req.Status = RequestPending
	req.CreatedAt = now
	req.UpdatedAt = now

	cp := *req
	m.requests[req.ID] = &cp
	return nil
}

func (m *MemoryRepository) GetRequestByID(_ context.Context, id int64) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryRepository) UpdateRequestStatus(_ context.Context, id int64, from, to RequestStatus, upd RequestStatusUpdate) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[id]
	if !ok || r.Status != from {
		return nil, ErrRequestNotFound
	}

	r.Status = to
	if upd.AdminNotes != nil {
		r.AdminNotes = upd.AdminNotes
	}
	if upd.RejectionReason != nil {
		r.RejectionReason = upd.RejectionReason
	}
	if upd.ClearApproval {
		r.ApprovedDate = nil
		r.ApprovedStart = nil
		r.ApprovedEnd = nil
		r.FieldOfficerID = nil
	} else {
		if upd.ApprovedDate != nil {
			d := DateOnly(*upd.ApprovedDate)
			r.ApprovedDate = &d
		}
		if upd.ApprovedStart != nil {
			r.ApprovedStart = upd.ApprovedStart
		}
		if upd.ApprovedEnd != nil {
			r.ApprovedEnd = upd.ApprovedEnd
		}
		if upd.FieldOfficerID != nil {
			r.FieldOfficerID = upd.FieldOfficerID
		}
	}
	r.UpdatedAt = time.Now()

	cp := *r
	return &cp, nil
}

func (m *MemoryRepository) SearchRequests(_ context.Context, f RequestFilter, page, limit int) ([]Request, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []Request
	for _, r := range m.requests {
		if f.Status != nil && r.Status != *f.Status {
			continue
		}
		if f.CenterID != nil && r.CenterID != *f.CenterID {
			continue
		}
		if f.FarmerID != nil && r.FarmerID != *f.FarmerID {
			continue
		}
		if f.DateFrom != nil && r.PreferredDate.Before(DateOnly(*f.DateFrom)) {
			continue
		}
		if f.DateTo != nil && r.PreferredDate.After(DateOnly(*f.DateTo)) {
			continue
		}
		matched = append(matched, *r)
	}

	sortRequestsByCreatedDesc(matched)
	total := len(matched)

	return pageOf(matched, page, limit), total, nil
}

func (m *MemoryRepository) ListRequestsByFarmer(_ context.Context, farmerID int64) ([]Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []Request
	for _, r := range m.requests {
		if r.FarmerID == farmerID {
			matched = append(matched, *r)
		}
	}
	sortRequestsByCreatedDesc(matched)
	return matched, nil
}

func (m *MemoryRepository) ListPendingRequests(_ context.Context) ([]Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []Request
	for _, r := range m.requests {
		if r.Status == RequestPending {
			matched = append(matched, *r)
		}
	}
	sortRequestsByCreatedDesc(matched)
	return matched, nil
}

// ScheduleStore

func (m *MemoryRepository) CreateSchedule(_ context.Context, sch *Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextScheduleID++
	now := time.Now()

	sch.ID = m.nextScheduleID
	sch.ScheduledDate = DateOnly(sch.ScheduledDate)
	if sch.Status == "" {
		sch.Status = SchedulePending
	}
	sch.CreatedAt = now
	sch.UpdatedAt = now

	cp := *sch
	m.schedules[sch.ID] = &cp
	return nil
}

func (m *MemoryRepository) GetScheduleByID(_ context.Context, id int64) (*Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.schedules[id]
	if !ok {
		return nil, ErrScheduleNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryRepository) UpdateSchedule(_ context.Context, id int64, upd ScheduleUpdate) (*Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.schedules[id]
	if !ok {
		return nil, ErrScheduleNotFound
	}
	if upd.Status != nil {
		s.Status = *upd.Status
	}
	if upd.StartTime != nil {
		s.StartTime = *upd.StartTime
	}
	if upd.EndTime != nil {
		s.EndTime = *upd.EndTime
	}
	if upd.AdminNotes != nil {
		s.AdminNotes = upd.AdminNotes
	}
	if upd.RejectionReason != nil {
		s.RejectionReason = upd.RejectionReason
	}
	if upd.FieldOfficerID != nil {
		s.FieldOfficerID = upd.FieldOfficerID
	}
	s.UpdatedAt = time.Now()

	cp := *s
	return &cp, nil
}

func (m *MemoryRepository) AttachQRCredential(_ context.Context, id int64, url, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.schedules[id]
	if !ok {
		return ErrScheduleNotFound
	}
	s.QRCodeURL = &url
	s.QRCodeData = &payload
	s.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryRepository) MarkScheduleCompleted(_ context.Context, id int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.schedules[id]
	if !ok {
		return false, nil
	}
	s.Status = ScheduleCompleted
	if s.CompletedAt == nil {
		s.CompletedAt = &now
	}
	s.UpdatedAt = time.Now()
	return true, nil
}

func (m *MemoryRepository) SearchSchedules(_ context.Context, f ScheduleFilter, page, limit int) ([]Schedule, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []Schedule
	for _, s := range m.schedules {
		if f.Status != nil && s.Status != *f.Status {
			continue
		}
		if f.CenterID != nil && s.CenterID != *f.CenterID {
			continue
		}
		if f.FarmerID != nil && s.FarmerID != *f.FarmerID {
			continue
		}
		if f.FieldOfficerID != nil && (s.FieldOfficerID == nil || *s.FieldOfficerID != *f.FieldOfficerID) {
			continue
		}
		if f.DateFrom != nil && s.ScheduledDate.Before(DateOnly(*f.DateFrom)) {
			continue
		}
		if f.DateTo != nil && s.ScheduledDate.After(DateOnly(*f.DateTo)) {
			continue
		}
		matched = append(matched, *s)
	}

	sortSchedulesByCreatedDesc(matched)
	total := len(matched)

	return pageOf(matched, page, limit), total, nil
}

func (m *MemoryRepository) ListSchedulesByFarmer(_ context.Context, farmerID int64) ([]Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []Schedule
	for _, s := range m.schedules {
		if s.FarmerID == farmerID {
			matched = append(matched, *s)
		}
	}
	sortSchedulesByCreatedDesc(matched)
	return matched, nil
}

func (m *MemoryRepository) ListTodaySchedules(_ context.Context, today time.Time) ([]Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := DateOnly(today)
	var matched []Schedule
	for _, s := range m.schedules {
		if s.ScheduledDate.Equal(d) && (s.Status == SchedulePending || s.Status == ScheduleApproved) {
			matched = append(matched, *s)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].StartTime < matched[j].StartTime })
	return matched, nil
}

func (m *MemoryRepository) InsertEvent(_ context.Context, ev EventLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ev.ID = int64(len(m.events) + 1)
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	m.events = append(m.events, ev)
	return nil
}

// Events returns a copy of the event log, for tests.
func (m *MemoryRepository) Events() []EventLog {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]EventLog, len(m.events))
	copy(out, m.events)
	return out
}

func sortRequestsByCreatedDesc(rs []Request) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].ID > rs[j].ID
		}
		return rs[i].CreatedAt.After(rs[j].CreatedAt)
	})
}

func sortSchedulesByCreatedDesc(ss []Schedule) {
	sort.Slice(ss, func(i, j int) bool {
		if ss[i].CreatedAt.Equal(ss[j].CreatedAt) {
			return ss[i].ID > ss[j].ID
		}
		return ss[i].CreatedAt.After(ss[j].CreatedAt)
	})
}

func pageOf[T any](items []T, page, limit int) []T {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return nil
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
