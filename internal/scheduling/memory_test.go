package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSlot(t *testing.T, repo *MemoryRepository, max int) *TimeSlot {
	t.Helper()
	slot := &TimeSlot{
		CenterID:    1,
		SlotDate:    DateOnly(time.Now().AddDate(0, 0, 1)),
		StartTime:   "09:00",
		EndTime:     "10:00",
		MaxBookings: max,
	}
	require.NoError(t, repo.CreateSlot(context.Background(), slot))
	return slot
}

func TestBookSlotStopsAtCapacity(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	slot := seedSlot(t, repo, 2)

	for i := 0; i < 2; i++ {
		booked, err := repo.BookSlot(ctx, slot.ID)
		require.NoError(t, err)
		assert.True(t, booked)
	}

	booked, err := repo.BookSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.False(t, booked)

	got, err := repo.GetSlotByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentBookings)
	assert.Equal(t, 0, got.AvailableBookings())
}

func TestReleaseSlotFloorsAtZero(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	slot := seedSlot(t, repo, 2)

	require.NoError(t, repo.ReleaseSlot(ctx, slot.ID))

	got, err := repo.GetSlotByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentBookings)

	booked, err := repo.BookSlot(ctx, slot.ID)
	require.NoError(t, err)
	require.True(t, booked)
	require.NoError(t, repo.ReleaseSlot(ctx, slot.ID))

	got, err = repo.GetSlotByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentBookings)
}

func TestCreateSlotDuplicateInterval(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	slot := seedSlot(t, repo, 2)

	dup := &TimeSlot{
		CenterID:    slot.CenterID,
		SlotDate:    slot.SlotDate,
		StartTime:   slot.StartTime,
		EndTime:     slot.EndTime,
		MaxBookings: 5,
	}
	assert.ErrorIs(t, repo.CreateSlot(ctx, dup), ErrSlotConflict)

	// same interval at another center is a different slot
	other := &TimeSlot{
		CenterID:    slot.CenterID + 1,
		SlotDate:    slot.SlotDate,
		StartTime:   slot.StartTime,
		EndTime:     slot.EndTime,
		MaxBookings: 5,
	}
	assert.NoError(t, repo.CreateSlot(ctx, other))
}

func TestUpdateRequestStatusGuard(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	req := &Request{
		FarmerID:      1,
		CenterID:      1,
		PreferredDate: time.Now(),
		ContactPhone:  "+911234567890",
	}
	require.NoError(t, repo.CreateRequest(ctx, req))

	// wrong expected status is refused
	_, err := repo.UpdateRequestStatus(ctx, req.ID, RequestApproved, RequestRejected, RequestStatusUpdate{})
	assert.ErrorIs(t, err, ErrRequestNotFound)

	d := DateOnly(time.Now().AddDate(0, 0, 1))
	start, end := "09:00", "10:00"
	officer := int64(3)
	updated, err := repo.UpdateRequestStatus(ctx, req.ID, RequestPending, RequestApproved, RequestStatusUpdate{
		ApprovedDate:   &d,
		ApprovedStart:  &start,
		ApprovedEnd:    &end,
		FieldOfficerID: &officer,
	})
	require.NoError(t, err)
	assert.Equal(t, RequestApproved, updated.Status)

	// reverting with ClearApproval wipes the approval fields
	reverted, err := repo.UpdateRequestStatus(ctx, req.ID, RequestApproved, RequestPending, RequestStatusUpdate{
		ClearApproval: true,
	})
	require.NoError(t, err)
	assert.Equal(t, RequestPending, reverted.Status)
	assert.Nil(t, reverted.ApprovedDate)
	assert.Nil(t, reverted.ApprovedStart)
	assert.Nil(t, reverted.ApprovedEnd)
	assert.Nil(t, reverted.FieldOfficerID)
}

func TestSearchRequestsPaging(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		req := &Request{
			FarmerID:      int64(i + 1),
			CenterID:      1,
			PreferredDate: time.Now(),
			ContactPhone:  "+911234567890",
		}
		require.NoError(t, repo.CreateRequest(ctx, req))
	}

	page1, total, err := repo.SearchRequests(ctx, RequestFilter{}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, page1, 2)

	page3, total, err := repo.SearchRequests(ctx, RequestFilter{}, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, page3, 1)

	beyond, total, err := repo.SearchRequests(ctx, RequestFilter{}, 9, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Empty(t, beyond)
}

func TestHasActiveBookings(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	date := DateOnly(time.Now().AddDate(0, 0, 2))

	active, err := repo.HasActiveBookings(ctx, 1, date)
	require.NoError(t, err)
	assert.False(t, active)

	sch := &Schedule{
		FarmerID:      1,
		CenterID:      1,
		ScheduledDate: date,
		StartTime:     "09:00",
		EndTime:       "10:00",
		Status:        ScheduleApproved,
		ContactPhone:  "+911234567890",
	}
	require.NoError(t, repo.CreateSchedule(ctx, sch))

	active, err = repo.HasActiveBookings(ctx, 1, date)
	require.NoError(t, err)
	assert.True(t, active)

	// terminal schedules do not block the date
	_, err = repo.UpdateSchedule(ctx, sch.ID, ScheduleUpdate{Status: statusPtr(ScheduleCancelled)})
	require.NoError(t, err)

	active, err = repo.HasActiveBookings(ctx, 1, date)
	require.NoError(t, err)
	assert.False(t, active)
}

func statusPtr(s ScheduleStatus) *ScheduleStatus { return &s }
