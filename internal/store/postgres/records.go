package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/donorcrm/internal/core"
)

// ---- donations ----

func (q *queries) InsertDonation(ctx context.Context, d core.Donation) (int64, error) {
	var id int64
	err := q.q.QueryRow(ctx, `
		INSERT INTO donations (person_id, company_id, amount, donation_date, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		d.PersonID, d.CompanyID, d.Amount, d.Date, d.Notes,
	).Scan(&id)
	return id, mapErr(err, "insert donation")
}

func (q *queries) UpdateDonation(ctx context.Context, d core.Donation) error {
	tag, err := q.q.Exec(ctx, `
		UPDATE donations
		SET person_id = $2, company_id = $3, amount = $4, donation_date = $5, notes = $6
		WHERE id = $1`,
		d.ID, d.PersonID, d.CompanyID, d.Amount, d.Date, d.Notes)
	if err != nil {
		return mapErr(err, fmt.Sprintf("update donation %d", d.ID))
	}
	return expectRows(tag, fmt.Sprintf("donation %d", d.ID))
}

func scanDonation(row pgx.CollectableRow) (core.Donation, error) {
	var d core.Donation
	err := row.Scan(&d.ID, &d.PersonID, &d.CompanyID, &d.Amount, &d.Date, &d.Notes, &d.CreatedAt)
	return d, err
}

func (q *queries) ListDonations(ctx context.Context, personID, companyID *int64) ([]core.Donation, error) {
	wb := newWhereBuilder()
	wb.addID("person_id", personID)
	wb.addID("company_id", companyID)
	where, args := wb.build()

	rows, err := q.q.Query(ctx, `
		SELECT id, person_id, company_id, amount::float8, donation_date, notes, created_at
		FROM donations`+where+`
		ORDER BY donation_date DESC, id DESC`, args...)
	if err != nil {
		return nil, mapErr(err, "list donations")
	}
	donations, err := pgx.CollectRows(rows, scanDonation)
	return donations, mapErr(err, "list donations")
}

func (q *queries) MarkDonor(ctx context.Context, personID, companyID *int64) error {
	if personID != nil {
		tag, err := q.q.Exec(ctx, `UPDATE people SET is_donor = true, updated_at = now() WHERE id = $1`, *personID)
		if err != nil {
			return mapErr(err, "mark person donor")
		}
		if err := expectRows(tag, fmt.Sprintf("person %d", *personID)); err != nil {
			return err
		}
	}
	if companyID != nil {
		tag, err := q.q.Exec(ctx, `UPDATE companies SET is_donor = true, updated_at = now() WHERE id = $1`, *companyID)
		if err != nil {
			return mapErr(err, "mark company donor")
		}
		if err := expectRows(tag, fmt.Sprintf("company %d", *companyID)); err != nil {
			return err
		}
	}
	return nil
}

// ---- saved views ----

const viewColumns = `id, user_id, name, entity_type, filter_state::text, is_shared, created_at, updated_at`

func scanView(row pgx.CollectableRow) (core.SavedView, error) {
	var v core.SavedView
	var state string
	err := row.Scan(&v.ID, &v.UserID, &v.Name, &v.EntityType, &state, &v.IsShared, &v.CreatedAt, &v.UpdatedAt)
	v.FilterState = json.RawMessage(state)
	return v, err
}

func (q *queries) oneView(ctx context.Context, what, sql string, args ...any) (core.SavedView, error) {
	rows, err := q.q.Query(ctx, sql, args...)
	if err != nil {
		return core.SavedView{}, mapErr(err, what)
	}
	v, err := pgx.CollectExactlyOneRow(rows, scanView)
	return v, mapErr(err, what)
}

func (q *queries) CreateSavedView(ctx context.Context, v core.SavedView) (core.SavedView, error) {
	return q.oneView(ctx, "create saved view", `
		INSERT INTO saved_views (user_id, name, entity_type, filter_state, is_shared)
		VALUES ($1, $2, $3, $4::jsonb, $5)
		RETURNING `+viewColumns,
		v.UserID, v.Name, string(v.EntityType), string(v.FilterState), v.IsShared)
}

func (q *queries) GetSavedView(ctx context.Context, id int64) (core.SavedView, error) {
	return q.oneView(ctx, fmt.Sprintf("saved view %d", id),
		`SELECT `+viewColumns+` FROM saved_views WHERE id = $1`, id)
}

func (q *queries) ListSavedViews(ctx context.Context, et core.EntityType, userID string) ([]core.SavedView, error) {
	wb := newWhereBuilder()
	wb.addCond("(is_shared OR user_id = %s)", userID)
	wb.add("entity_type", string(et))
	where, args := wb.build()

	rows, err := q.q.Query(ctx, `SELECT `+viewColumns+` FROM saved_views`+where+` ORDER BY lower(name), id`, args...)
	if err != nil {
		return nil, mapErr(err, "list saved views")
	}
	views, err := pgx.CollectRows(rows, scanView)
	return views, mapErr(err, "list saved views")
}

func (q *queries) UpdateSavedView(ctx context.Context, v core.SavedView) (core.SavedView, error) {
	return q.oneView(ctx, fmt.Sprintf("saved view %d", v.ID), `
		UPDATE saved_views
		SET name = $2, filter_state = $3::jsonb, is_shared = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+viewColumns,
		v.ID, v.Name, string(v.FilterState), v.IsShared)
}

func (q *queries) DeleteSavedView(ctx context.Context, id int64) error {
	tag, err := q.q.Exec(ctx, `DELETE FROM saved_views WHERE id = $1`, id)
	if err != nil {
		return mapErr(err, fmt.Sprintf("delete saved view %d", id))
	}
	return expectRows(tag, fmt.Sprintf("saved view %d", id))
}

// ---- audit ----

func (q *queries) InsertAudit(ctx context.Context, e core.AuditEntry) error {
	_, err := q.q.Exec(ctx, `
		INSERT INTO audit_log (id, action, severity, entity_type, user_id, ip_address, user_agent,
			rows_affected, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, string(e.Action), string(e.Severity), string(e.EntityType), e.UserID, e.IPAddress,
		e.UserAgent, e.RowsAffected, e.Reason, e.CreatedAt)
	return mapErr(err, "insert audit entry")
}

func (q *queries) PruneAudit(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	tag, err := q.q.Exec(ctx, `
		DELETE FROM audit_log
		WHERE id IN (
			SELECT id FROM audit_log WHERE created_at < $1 ORDER BY created_at LIMIT $2
		)`, cutoff, limit)
	if err != nil {
		return 0, mapErr(err, "prune audit log")
	}
	return tag.RowsAffected(), nil
}
