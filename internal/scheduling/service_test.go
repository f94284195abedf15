package scheduling

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agroconnect/farm-scheduling/internal/notify"
	"github.com/agroconnect/farm-scheduling/internal/qr"
	redisclient "github.com/agroconnect/farm-scheduling/internal/redis"
)

func newTestService(t *testing.T) (*Service, *MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository()
	log := zap.NewNop()
	svc := NewService(repo,
		redisclient.NewLocalLocker(),
		qr.NewService("https://app.example.com", ""),
		notify.NewLogNotifier(log),
		log)
	return svc, repo
}

func newPendingRequest(t *testing.T, svc *Service, farmerID int64) *Request {
	t.Helper()
	req, err := svc.CreateRequest(context.Background(), CreateRequestInput{
		FarmerID:      farmerID,
		CenterID:      1,
		PreferredDate: DateOnly(time.Now().AddDate(0, 0, 3)),
		ContactPhone:  "+911234567890",
	})
	require.NoError(t, err)
	require.Equal(t, RequestPending, req.Status)
	return req
}

func testApproval(date time.Time) ApprovalInput {
	return ApprovalInput{
		Date:           date,
		StartTime:      "09:00",
		EndTime:        "10:00",
		FieldOfficerID: 7,
	}
}

func TestCreateRequestValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateRequest(ctx, CreateRequestInput{
		CenterID:      1,
		PreferredDate: time.Now(),
		ContactPhone:  "+911234567890",
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateRequest(ctx, CreateRequestInput{
		FarmerID:      1,
		CenterID:      1,
		PreferredDate: time.Now(),
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestApproveRequest(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	req := newPendingRequest(t, svc, 42)
	date := DateOnly(time.Now().AddDate(0, 0, 3))

	approved, sched, err := svc.ApproveRequest(ctx, req.ID, testApproval(date))
	require.NoError(t, err)

	assert.Equal(t, RequestApproved, approved.Status)
	require.NotNil(t, approved.ApprovedDate)
	assert.True(t, approved.ApprovedDate.Equal(date))
	assert.Equal(t, "09:00", *approved.ApprovedStart)
	assert.Equal(t, "10:00", *approved.ApprovedEnd)

	assert.Equal(t, ScheduleApproved, sched.Status)
	require.NotNil(t, sched.RequestID)
	assert.Equal(t, req.ID, *sched.RequestID)
	assert.Equal(t, int64(42), sched.FarmerID)

	// credential encodes schedule and farmer identity
	require.NotNil(t, sched.QRCodeData)
	parsed, err := qr.Parse(*sched.QRCodeData)
	require.NoError(t, err)
	assert.Equal(t, sched.ID, parsed.ScheduleID)
	assert.Equal(t, sched.FarmerID, parsed.FarmerID)

	// capacity was booked on an auto-created single-capacity slot
	slot, err := repo.GetSlotByInterval(ctx, 1, date, "09:00", "10:00")
	require.NoError(t, err)
	assert.Equal(t, 1, slot.MaxBookings)
	assert.Equal(t, 1, slot.CurrentBookings)
}

func TestApproveRequestTwice(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	req := newPendingRequest(t, svc, 1)
	date := DateOnly(time.Now().AddDate(0, 0, 3))

	_, _, err := svc.ApproveRequest(ctx, req.ID, testApproval(date))
	require.NoError(t, err)

	_, _, err = svc.ApproveRequest(ctx, req.ID, testApproval(date))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApproveRequestSlotFull(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	date := DateOnly(time.Now().AddDate(0, 0, 3))
	_, err := svc.CreateTimeSlot(ctx, CreateSlotInput{
		CenterID: 1, Date: date, StartTime: "09:00", EndTime: "10:00", MaxBookings: 1,
	})
	require.NoError(t, err)

	first := newPendingRequest(t, svc, 1)
	second := newPendingRequest(t, svc, 2)

	_, _, err = svc.ApproveRequest(ctx, first.ID, testApproval(date))
	require.NoError(t, err)

	_, _, err = svc.ApproveRequest(ctx, second.ID, testApproval(date))
	assert.ErrorIs(t, err, ErrSlotFull)

	// losing request stays pending and can be approved elsewhere
	got, err := svc.GetRequest(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, RequestPending, got.Status)

	slot, err := repo.GetSlotByInterval(ctx, 1, date, "09:00", "10:00")
	require.NoError(t, err)
	assert.Equal(t, 1, slot.CurrentBookings)
}

func TestApproveRequestConcurrentLastUnit(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	date := DateOnly(time.Now().AddDate(0, 0, 3))
	_, err := svc.CreateTimeSlot(ctx, CreateSlotInput{
		CenterID: 1, Date: date, StartTime: "09:00", EndTime: "10:00", MaxBookings: 1,
	})
	require.NoError(t, err)

	const n = 8
	ids := make([]int64, n)
	for i := 0; i < n; i++ {
		ids[i] = newPendingRequest(t, svc, int64(i+1)).ID
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = svc.ApproveRequest(ctx, ids[i], testApproval(date))
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, ErrSlotFull)
		}
	}
	assert.Equal(t, 1, successes)

	slot, err := repo.GetSlotByInterval(ctx, 1, date, "09:00", "10:00")
	require.NoError(t, err)
	assert.Equal(t, 1, slot.CurrentBookings)
}

func TestApproveRequestUnavailableSlot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	date := DateOnly(time.Now().AddDate(0, 0, 3))
	_, err := svc.CreateTimeSlot(ctx, CreateSlotInput{
		CenterID: 1, Date: date, StartTime: "09:00", EndTime: "10:00", MaxBookings: 3,
	})
	require.NoError(t, err)

	_, err = svc.SetDateAvailability(ctx, 1, date, false, true)
	require.NoError(t, err)

	req := newPendingRequest(t, svc, 1)
	_, _, err = svc.ApproveRequest(ctx, req.ID, testApproval(date))
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestApproveRequestBadInterval(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	req := newPendingRequest(t, svc, 1)
	date := DateOnly(time.Now().AddDate(0, 0, 3))

	cases := []struct {
		name       string
		start, end string
	}{
		{"bad start format", "9:00", "10:00"},
		{"bad end format", "09:00", "25:00"},
		{"end before start", "14:00", "13:00"},
		{"zero length", "09:00", "09:00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.ApproveRequest(ctx, req.ID, ApprovalInput{
				Date: date, StartTime: tc.start, EndTime: tc.end, FieldOfficerID: 1,
			})
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestRejectRequest(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	req := newPendingRequest(t, svc, 1)

	_, err := svc.RejectRequest(ctx, req.ID, "", nil)
	assert.ErrorIs(t, err, ErrValidation)

	rejected, err := svc.RejectRequest(ctx, req.ID, "center closed that week", nil)
	require.NoError(t, err)
	assert.Equal(t, RequestRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "center closed that week", *rejected.RejectionReason)

	// terminal: no second transition
	_, err = svc.RejectRequest(ctx, req.ID, "again", nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.CancelRequest(ctx, req.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelRequest(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	req := newPendingRequest(t, svc, 1)

	cancelled, err := svc.CancelRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, RequestCancelled, cancelled.Status)

	date := DateOnly(time.Now().AddDate(0, 0, 3))
	_, _, err = svc.ApproveRequest(ctx, req.ID, testApproval(date))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCreateScheduleDirect(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	date := DateOnly(time.Now().AddDate(0, 0, 2))
	sched, err := svc.CreateSchedule(ctx, CreateScheduleInput{
		FarmerID:     5,
		CenterID:     1,
		Date:         date,
		StartTime:    "10:00",
		EndTime:      "11:00",
		ContactPhone: "+911112223334",
	})
	require.NoError(t, err)

	assert.Equal(t, SchedulePending, sched.Status)
	assert.Nil(t, sched.RequestID)
	require.NotNil(t, sched.QRCodeData)

	parsed, err := qr.Parse(*sched.QRCodeData)
	require.NoError(t, err)
	assert.Equal(t, sched.ID, parsed.ScheduleID)
	assert.Equal(t, int64(5), parsed.FarmerID)
}

func TestUpdateScheduleApprovalBooksCapacity(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	date := DateOnly(time.Now().AddDate(0, 0, 2))
	sched, err := svc.CreateSchedule(ctx, CreateScheduleInput{
		FarmerID: 5, CenterID: 1, Date: date,
		StartTime: "10:00", EndTime: "11:00", ContactPhone: "+911112223334",
	})
	require.NoError(t, err)

	approvedStatus := ScheduleApproved
	updated, err := svc.UpdateSchedule(ctx, sched.ID, ScheduleUpdate{Status: &approvedStatus})
	require.NoError(t, err)
	assert.Equal(t, ScheduleApproved, updated.Status)

	slot, err := repo.GetSlotByInterval(ctx, 1, date, "10:00", "11:00")
	require.NoError(t, err)
	assert.Equal(t, 1, slot.CurrentBookings)

	// cancelling the approved schedule gives the unit back
	cancelledStatus := ScheduleCancelled
	_, err = svc.UpdateSchedule(ctx, sched.ID, ScheduleUpdate{Status: &cancelledStatus})
	require.NoError(t, err)

	slot, err = repo.GetSlotByInterval(ctx, 1, date, "10:00", "11:00")
	require.NoError(t, err)
	assert.Equal(t, 0, slot.CurrentBookings)
}

func TestUpdateScheduleRefusesCompletion(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	date := DateOnly(time.Now().AddDate(0, 0, 2))
	sched, err := svc.CreateSchedule(ctx, CreateScheduleInput{
		FarmerID: 5, CenterID: 1, Date: date,
		StartTime: "10:00", EndTime: "11:00", ContactPhone: "+911112223334",
	})
	require.NoError(t, err)

	completed := ScheduleCompleted
	_, err = svc.UpdateSchedule(ctx, sched.ID, ScheduleUpdate{Status: &completed})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMarkScheduleCompleted(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	req := newPendingRequest(t, svc, 1)
	date := DateOnly(time.Now().AddDate(0, 0, 3))
	_, sched, err := svc.ApproveRequest(ctx, req.ID, testApproval(date))
	require.NoError(t, err)

	done, err := svc.MarkScheduleCompleted(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, ScheduleCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	firstCompletion := *done.CompletedAt

	// idempotent: second call no-ops and keeps the original timestamp
	again, err := svc.MarkScheduleCompleted(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, ScheduleCompleted, again.Status)
	require.NotNil(t, again.CompletedAt)
	assert.True(t, firstCompletion.Equal(*again.CompletedAt))
}

func TestMarkScheduleCompletedFromPending(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	date := DateOnly(time.Now().AddDate(0, 0, 2))
	sched, err := svc.CreateSchedule(ctx, CreateScheduleInput{
		FarmerID: 5, CenterID: 1, Date: date,
		StartTime: "10:00", EndTime: "11:00", ContactPhone: "+911112223334",
	})
	require.NoError(t, err)

	_, err = svc.MarkScheduleCompleted(ctx, sched.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateTimeSlotCapacityFloor(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	date := DateOnly(time.Now().AddDate(0, 0, 3))
	slot, err := svc.CreateTimeSlot(ctx, CreateSlotInput{
		CenterID: 1, Date: date, StartTime: "09:00", EndTime: "10:00", MaxBookings: 2,
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		booked, err := repo.BookSlot(ctx, slot.ID)
		require.NoError(t, err)
		require.True(t, booked)
	}

	one := 1
	_, err = svc.UpdateTimeSlot(ctx, slot.ID, TimeSlotUpdate{MaxBookings: &one})
	assert.ErrorIs(t, err, ErrValidation)

	three := 3
	updated, err := svc.UpdateTimeSlot(ctx, slot.ID, TimeSlotUpdate{MaxBookings: &three})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.MaxBookings)
}

func TestDeleteTimeSlotInUse(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	date := DateOnly(time.Now().AddDate(0, 0, 3))
	slot, err := svc.CreateTimeSlot(ctx, CreateSlotInput{
		CenterID: 1, Date: date, StartTime: "09:00", EndTime: "10:00", MaxBookings: 1,
	})
	require.NoError(t, err)

	booked, err := repo.BookSlot(ctx, slot.ID)
	require.NoError(t, err)
	require.True(t, booked)

	assert.ErrorIs(t, svc.DeleteTimeSlot(ctx, slot.ID), ErrSlotInUse)

	require.NoError(t, repo.ReleaseSlot(ctx, slot.ID))
	assert.NoError(t, svc.DeleteTimeSlot(ctx, slot.ID))
}

func TestListAvailableSlots(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	day1 := DateOnly(time.Now().AddDate(0, 0, 1))
	day2 := DateOnly(time.Now().AddDate(0, 0, 2))

	for _, c := range []struct {
		date       time.Time
		start, end string
	}{
		{day1, "09:00", "10:00"},
		{day1, "10:00", "11:00"},
		{day2, "09:00", "10:00"},
	} {
		_, err := svc.CreateTimeSlot(ctx, CreateSlotInput{
			CenterID: 1, Date: c.date, StartTime: c.start, EndTime: c.end, MaxBookings: 2,
		})
		require.NoError(t, err)
	}

	days, err := svc.ListAvailableSlots(ctx, 1, day1, day2)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.True(t, days[0].Date.Equal(day1))
	assert.Len(t, days[0].Slots, 2)
	assert.Equal(t, 2, days[0].Slots[0].AvailableBookings)
	assert.True(t, days[1].Date.Equal(day2))

	_, err = svc.ListAvailableSlots(ctx, 1, day2, day1)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSetDateAvailabilityConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	date := DateOnly(time.Now().AddDate(0, 0, 3))
	_, err := svc.CreateTimeSlot(ctx, CreateSlotInput{
		CenterID: 1, Date: date, StartTime: "09:00", EndTime: "10:00", MaxBookings: 2,
	})
	require.NoError(t, err)

	// a pending request on the date blocks disabling
	_, err = svc.CreateRequest(ctx, CreateRequestInput{
		FarmerID: 1, CenterID: 1, PreferredDate: date, ContactPhone: "+911234567890",
	})
	require.NoError(t, err)

	_, err = svc.SetDateAvailability(ctx, 1, date, false, false)
	assert.ErrorIs(t, err, ErrDateHasAppointments)

	// force overrides the guard
	n, err := svc.SetDateAvailability(ctx, 1, date, false, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// re-enabling never needs force
	n, err = svc.SetDateAvailability(ctx, 1, date, true, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBulkUpdateDateAvailabilityPartial(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	free := DateOnly(time.Now().AddDate(0, 0, 1))
	busy := DateOnly(time.Now().AddDate(0, 0, 2))

	for _, d := range []time.Time{free, busy} {
		_, err := svc.CreateTimeSlot(ctx, CreateSlotInput{
			CenterID: 1, Date: d, StartTime: "09:00", EndTime: "10:00", MaxBookings: 2,
		})
		require.NoError(t, err)
	}
	_, err := svc.CreateRequest(ctx, CreateRequestInput{
		FarmerID: 1, CenterID: 1, PreferredDate: busy, ContactPhone: "+911234567890",
	})
	require.NoError(t, err)

	report, err := svc.BulkUpdateDateAvailability(ctx, 1, []time.Time{free, busy}, false, false)
	require.NoError(t, err)

	require.Len(t, report.Updated, 1)
	assert.Equal(t, free.Format("2006-01-02"), report.Updated[0])
	require.Len(t, report.Failed, 1)
	assert.Equal(t, busy.Format("2006-01-02"), report.Failed[0].Date)
	assert.Equal(t, ErrDateHasAppointments.Error(), report.Failed[0].Reason)
}

func TestSendDailyReminders(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	today := DateOnly(time.Now())
	tomorrow := DateOnly(time.Now().AddDate(0, 0, 1))

	for _, d := range []time.Time{today, today, tomorrow} {
		_, err := svc.CreateSchedule(ctx, CreateScheduleInput{
			FarmerID: 1, CenterID: 1, Date: d,
			StartTime: "10:00", EndTime: "11:00", ContactPhone: "+911112223334",
		})
		require.NoError(t, err)
	}

	n, err := svc.SendDailyReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestApprovalEventTrail(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	req := newPendingRequest(t, svc, 1)
	date := DateOnly(time.Now().AddDate(0, 0, 3))
	_, _, err := svc.ApproveRequest(ctx, req.ID, testApproval(date))
	require.NoError(t, err)

	var types []string
	for _, ev := range repo.Events() {
		types = append(types, ev.EventType)
	}
	assert.Contains(t, types, EventRequestCreated)
	assert.Contains(t, types, EventSlotBooked)
	assert.Contains(t, types, EventRequestApproved)
}
