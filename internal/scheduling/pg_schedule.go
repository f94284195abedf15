package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"
)

func (r *PgRepository) CreateSchedule(ctx context.Context, sch *Schedule) error {
	if sch.Status == "" {
		sch.Status = SchedulePending
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO soil_test_schedules (request_id, farmer_id, center_id, scheduled_date, start_time, end_time, status, field_officer_id, contact_phone, admin_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING `+scheduleColumns+`
	`, sch.RequestID, sch.FarmerID, sch.CenterID, DateOnly(sch.ScheduledDate), sch.StartTime, sch.EndTime, sch.Status, sch.FieldOfficerID, sch.ContactPhone, sch.AdminNotes)

	created, err := scanSchedule(row)
	if err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}

	*sch = *created
	return nil
}

func (r *PgRepository) GetScheduleByID(ctx context.Context, id int64) (*Schedule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+scheduleColumns+`
		FROM soil_test_schedules
		WHERE id = $1
	`, id)
	return scanSchedule(row)
}

func (r *PgRepository) UpdateSchedule(ctx context.Context, id int64, upd ScheduleUpdate) (*Schedule, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}

	add := func(col string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if upd.Status != nil {
		add("status", *upd.Status)
	}
	if upd.StartTime != nil {
		add("start_time", *upd.StartTime)
	}
	if upd.EndTime != nil {
		add("end_time", *upd.EndTime)
	}
	if upd.AdminNotes != nil {
		add("admin_notes", *upd.AdminNotes)
	}
	if upd.RejectionReason != nil {
		add("rejection_reason", *upd.RejectionReason)
	}
	if upd.FieldOfficerID != nil {
		add("field_officer_id", *upd.FieldOfficerID)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE soil_test_schedules
		SET `+strings.Join(sets, ", ")+`
		WHERE id = $1
		RETURNING `+scheduleColumns+`
	`, args...)

	return scanSchedule(row)
}

func (r *PgRepository) AttachQRCredential(ctx context.Context, id int64, url, payload string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE soil_test_schedules
		SET qr_code_url = $2,
		    qr_code_data = $3,
		    updated_at = now()
		WHERE id = $1
	`, id, url, payload)
	if err != nil {
		return fmt.Errorf("attach qr credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

func (r *PgRepository) MarkScheduleCompleted(ctx context.Context, id int64, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE soil_test_schedules
		SET status = 'completed',
		    completed_at = COALESCE(completed_at, $2),
		    updated_at = now()
		WHERE id = $1
	`, id, now)
	if err != nil {
		return false, fmt.Errorf("mark schedule completed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PgRepository) SearchSchedules(ctx context.Context, f ScheduleFilter, page, limit int) ([]Schedule, int, error) {
	where, args := buildScheduleWhere(f)
	offset := (page - 1) * limit

	var total int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM soil_test_schedules`+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s
		FROM soil_test_schedules%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, scheduleColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search schedules: %w", err)
	}
	defer rows.Close()

	var result []Schedule
	for rows.Next() {
		sch, err := scanSchedule(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *sch)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return result, total, nil
}

func buildScheduleWhere(f ScheduleFilter) (string, []any) {
	var conds []string
	var args []any

	if f.Status != nil {
		args = append(args, *f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.CenterID != nil {
		args = append(args, *f.CenterID)
		conds = append(conds, fmt.Sprintf("center_id = $%d", len(args)))
	}
	if f.FarmerID != nil {
		args = append(args, *f.FarmerID)
		conds = append(conds, fmt.Sprintf("farmer_id = $%d", len(args)))
	}
	if f.FieldOfficerID != nil {
		args = append(args, *f.FieldOfficerID)
		conds = append(conds, fmt.Sprintf("field_officer_id = $%d", len(args)))
	}
	if f.DateFrom != nil {
		args = append(args, DateOnly(*f.DateFrom))
		conds = append(conds, fmt.Sprintf("scheduled_date >= $%d", len(args)))
	}
	if f.DateTo != nil {
		args = append(args, DateOnly(*f.DateTo))
		conds = append(conds, fmt.Sprintf("scheduled_date <= $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *PgRepository) ListSchedulesByFarmer(ctx context.Context, farmerID int64) ([]Schedule, error) {
	return r.listSchedules(ctx, `
		SELECT `+scheduleColumns+`
		FROM soil_test_schedules
		WHERE farmer_id = $1
		ORDER BY created_at DESC
	`, farmerID)
}

func (r *PgRepository) ListTodaySchedules(ctx context.Context, today time.Time) ([]Schedule, error) {
	return r.listSchedules(ctx, `
		SELECT `+scheduleColumns+`
		FROM soil_test_schedules
		WHERE scheduled_date = $1
		  AND status IN ('pending', 'approved')
		ORDER BY start_time
	`, DateOnly(today))
}

func (r *PgRepository) listSchedules(ctx context.Context, query string, args ...any) ([]Schedule, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var result []Schedule
	for rows.Next() {
		sch, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *sch)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
