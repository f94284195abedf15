package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"
)

func (r *PgRepository) CreateSlot(ctx context.Context, slot *TimeSlot) error {
	if slot.MaxBookings <= 0 {
		slot.MaxBookings = 1
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO time_slots (center_id, slot_date, start_time, end_time, is_available, max_bookings, current_bookings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, true, $5, 0, now(), now())
		RETURNING `+slotColumns+`
	`, slot.CenterID, DateOnly(slot.SlotDate), slot.StartTime, slot.EndTime, slot.MaxBookings)

	created, err := scanSlot(row)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotConflict
		}
		return fmt.Errorf("create time slot: %w", err)
	}

	*slot = *created
	return nil
}

func (r *PgRepository) GetSlotByID(ctx context.Context, id int64) (*TimeSlot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM time_slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) GetSlotByInterval(ctx context.Context, centerID int64, date time.Time, start, end string) (*TimeSlot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM time_slots
		WHERE center_id = $1 AND slot_date = $2 AND start_time = $3 AND end_time = $4
	`, centerID, DateOnly(date), start, end)
	return scanSlot(row)
}

func (r *PgRepository) UpdateSlot(ctx context.Context, id int64, upd TimeSlotUpdate) (*TimeSlot, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}

	if upd.MaxBookings != nil {
		args = append(args, *upd.MaxBookings)
		sets = append(sets, fmt.Sprintf("max_bookings = $%d", len(args)))
	}
	if upd.IsAvailable != nil {
		args = append(args, *upd.IsAvailable)
		sets = append(sets, fmt.Sprintf("is_available = $%d", len(args)))
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE time_slots
		SET `+strings.Join(sets, ", ")+`
		WHERE id = $1
		RETURNING `+slotColumns+`
	`, args...)

	return scanSlot(row)
}

func (r *PgRepository) DeleteSlot(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM time_slots
		WHERE id = $1 AND current_bookings = 0
	`, id)
	if err != nil {
		return fmt.Errorf("delete time slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing slot from one still holding bookings.
		if _, err := r.GetSlotByID(ctx, id); err != nil {
			return err
		}
		return ErrSlotInUse
	}
	return nil
}

// BookSlot is the admission-control primitive: the capacity check and the
// increment are one conditional update so concurrent callers cannot
// overbook.
func (r *PgRepository) BookSlot(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE time_slots
		SET current_bookings = current_bookings + 1,
		    updated_at = now()
		WHERE id = $1
		  AND current_bookings < max_bookings
	`, id)
	if err != nil {
		return false, fmt.Errorf("book time slot: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PgRepository) ReleaseSlot(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE time_slots
		SET current_bookings = current_bookings - 1,
		    updated_at = now()
		WHERE id = $1
		  AND current_bookings > 0
	`, id)
	if err != nil {
		return fmt.Errorf("release time slot: %w", err)
	}
	return nil
}

func (r *PgRepository) ListAvailableSlots(ctx context.Context, centerID int64, from, to time.Time) ([]DayAvailability, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM time_slots
		WHERE center_id = $1
		  AND slot_date >= $2
		  AND slot_date <= $3
		  AND is_available = true
		ORDER BY slot_date, start_time
	`, centerID, DateOnly(from), DateOnly(to))
	if err != nil {
		return nil, fmt.Errorf("list available slots: %w", err)
	}
	defer rows.Close()

	var days []DayAvailability
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}

		entry := SlotAvailability{Slot: *s, AvailableBookings: s.AvailableBookings()}
		if n := len(days); n > 0 && days[n-1].Date.Equal(DateOnly(s.SlotDate)) {
			days[n-1].Slots = append(days[n-1].Slots, entry)
		} else {
			days = append(days, DayAvailability{
				Date:  DateOnly(s.SlotDate),
				Slots: []SlotAvailability{entry},
			})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return days, nil
}

func (r *PgRepository) HasActiveBookings(ctx context.Context, centerID int64, date time.Time) (bool, error) {
	var active bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM soil_test_schedules
			WHERE center_id = $1 AND scheduled_date = $2 AND status IN ('pending', 'approved')
		) OR EXISTS (
			SELECT 1 FROM soil_test_requests
			WHERE center_id = $1 AND preferred_date = $2 AND status = 'pending'
		)
	`, centerID, DateOnly(date)).Scan(&active)
	if err != nil {
		return false, fmt.Errorf("check active bookings: %w", err)
	}
	return active, nil
}

func (r *PgRepository) SetDateAvailability(ctx context.Context, centerID int64, date time.Time, available bool) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE time_slots
		SET is_available = $3,
		    updated_at = now()
		WHERE center_id = $1 AND slot_date = $2
	`, centerID, DateOnly(date), available)
	if err != nil {
		return 0, fmt.Errorf("set date availability: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
