package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"
)

func (r *PgRepository) CreateRequest(ctx context.Context, req *Request) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO soil_test_requests (farmer_id, center_id, preferred_date, preferred_slot, contact_phone, location_note, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', now(), now())
		RETURNING `+requestColumns+`
	`, req.FarmerID, req.CenterID, DateOnly(req.PreferredDate), req.PreferredSlot, req.ContactPhone, req.LocationNote)

	created, err := scanRequest(row)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	*req = *created
	return nil
}

func (r *PgRepository) GetRequestByID(ctx context.Context, id int64) (*Request, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM soil_test_requests
		WHERE id = $1
	`, id)
	return scanRequest(row)
}

func (r *PgRepository) UpdateRequestStatus(ctx context.Context, id int64, from, to RequestStatus, upd RequestStatusUpdate) (*Request, error) {
	var approvedDate *time.Time
	if upd.ApprovedDate != nil {
		d := DateOnly(*upd.ApprovedDate)
		approvedDate = &d
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE soil_test_requests
		SET status = $2,
		    admin_notes = COALESCE($4, admin_notes),
		    rejection_reason = COALESCE($5, rejection_reason),
		    approved_date = CASE WHEN $10 THEN NULL ELSE COALESCE($6, approved_date) END,
		    approved_start = CASE WHEN $10 THEN NULL ELSE COALESCE($7, approved_start) END,
		    approved_end = CASE WHEN $10 THEN NULL ELSE COALESCE($8, approved_end) END,
		    field_officer_id = CASE WHEN $10 THEN NULL ELSE COALESCE($9, field_officer_id) END,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+requestColumns+`
	`, id, to, from, upd.AdminNotes, upd.RejectionReason, approvedDate, upd.ApprovedStart, upd.ApprovedEnd, upd.FieldOfficerID, upd.ClearApproval)

	return scanRequest(row)
}

func (r *PgRepository) SearchRequests(ctx context.Context, f RequestFilter, page, limit int) ([]Request, int, error) {
	where, args := buildRequestWhere(f)
	offset := (page - 1) * limit

	var total int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM soil_test_requests`+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s
		FROM soil_test_requests%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, requestColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search requests: %w", err)
	}
	defer rows.Close()

	var result []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *req)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return result, total, nil
}

func buildRequestWhere(f RequestFilter) (string, []any) {
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
	if f.DateFrom != nil {
		args = append(args, DateOnly(*f.DateFrom))
		conds = append(conds, fmt.Sprintf("preferred_date >= $%d", len(args)))
	}
	if f.DateTo != nil {
		args = append(args, DateOnly(*f.DateTo))
		conds = append(conds, fmt.Sprintf("preferred_date <= $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *PgRepository) ListRequestsByFarmer(ctx context.Context, farmerID int64) ([]Request, error) {
	return r.listRequests(ctx, `
		SELECT `+requestColumns+`
		FROM soil_test_requests
		WHERE farmer_id = $1
		ORDER BY created_at DESC
	`, farmerID)
}

func (r *PgRepository) ListPendingRequests(ctx context.Context) ([]Request, error) {
	return r.listRequests(ctx, `
		SELECT `+requestColumns+`
		FROM soil_test_requests
		WHERE status = 'pending'
		ORDER BY created_at DESC
	`)
}

func (r *PgRepository) listRequests(ctx context.Context, query string, args ...any) ([]Request, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var result []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
