package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const slotColumns = `id, center_id, slot_date, start_time, end_time, is_available, max_bookings, current_bookings, created_at, updated_at`

func scanSlot(row pgx.Row) (*TimeSlot, error) {
	var s TimeSlot

	err := row.Scan(
		&s.ID,
		&s.CenterID,
		&s.SlotDate,
		&s.StartTime,
		&s.EndTime,
		&s.IsAvailable,
		&s.MaxBookings,
		&s.CurrentBookings,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	return &s, nil
}

const requestColumns = `id, farmer_id, center_id, preferred_date, preferred_slot, contact_phone, location_note, status, admin_notes, rejection_reason, approved_date, approved_start, approved_end, field_officer_id, created_at, updated_at`

func scanRequest(row pgx.Row) (*Request, error) {
	var r Request

	err := row.Scan(
		&r.ID,
		&r.FarmerID,
		&r.CenterID,
		&r.PreferredDate,
		&r.PreferredSlot,
		&r.ContactPhone,
		&r.LocationNote,
		&r.Status,
		&r.AdminNotes,
		&r.RejectionReason,
		&r.ApprovedDate,
		&r.ApprovedStart,
		&r.ApprovedEnd,
		&r.FieldOfficerID,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	return &r, nil
}

const scheduleColumns = `id, request_id, farmer_id, center_id, scheduled_date, start_time, end_time, status, field_officer_id, contact_phone, admin_notes, rejection_reason, qr_code_url, qr_code_data, completed_at, created_at, updated_at`

func scanSchedule(row pgx.Row) (*Schedule, error) {
	var s Schedule

	err := row.Scan(
		&s.ID,
		&s.RequestID,
		&s.FarmerID,
		&s.CenterID,
		&s.ScheduledDate,
		&s.StartTime,
		&s.EndTime,
		&s.Status,
		&s.FieldOfficerID,
		&s.ContactPhone,
		&s.AdminNotes,
		&s.RejectionReason,
		&s.QRCodeURL,
		&s.QRCodeData,
		&s.CompletedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	return &s, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO scheduling_events (event_type, request_id, schedule_id, payload, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
	`, ev.EventType, ev.RequestID, ev.ScheduleID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert scheduling event: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
