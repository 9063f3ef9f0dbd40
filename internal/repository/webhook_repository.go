package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/openvisit/visitor-portal/internal/model"
)

// WebhookRepo provides data access to the `webhooks` and
// `webhook_deliveries` tables.  Webhooks are managed by admins through
// the dashboard; the delivery worker reads the enabled set and records
// one row per delivery attempt.
type WebhookRepo struct {
	db *sql.DB
}

// NewWebhookRepo returns a new WebhookRepo bound to the given database.
func NewWebhookRepo(db *sql.DB) *WebhookRepo { return &WebhookRepo{db: db} }

const webhookColumns = `id, name, url, secret, events, enabled, created_at, updated_at`

func scanWebhook(row interface{ Scan(...interface{}) error }) (model.Webhook, error) {
	var w model.Webhook
	err := row.Scan(&w.ID, &w.Name, &w.URL, &w.Secret, &w.Events, &w.Enabled, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

// Create inserts a webhook and returns the stored row.
func (r *WebhookRepo) Create(ctx context.Context, w *model.Webhook) error {
	const q = `INSERT INTO webhooks (name, url, secret, events, enabled) VALUES (?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q, w.Name, w.URL, w.Secret, w.Events, w.Enabled)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := scanWebhook(r.db.QueryRowContext(ctx,
		`SELECT `+webhookColumns+` FROM webhooks WHERE id = ?`, uint64(id)))
	if err != nil {
		return err
	}
	*w = stored
	return nil
}

// GetByID fetches a webhook by primary key.  Returns ErrWebhookNotFound
// when no row matches.
func (r *WebhookRepo) GetByID(ctx context.Context, id uint64) (model.Webhook, error) {
	w, err := scanWebhook(r.db.QueryRowContext(ctx,
		`SELECT `+webhookColumns+` FROM webhooks WHERE id = ? LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Webhook{}, ErrWebhookNotFound
	}
	return w, err
}

// List returns all webhooks ordered by creation time.
func (r *WebhookRepo) List(ctx context.Context) ([]model.Webhook, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+webhookColumns+` FROM webhooks ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	hooks := make([]model.Webhook, 0)
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return hooks, nil
}

// ListEnabledForEvent returns enabled webhooks whose events filter
// matches the given event name.  A filter of "*" matches everything;
// otherwise the filter is a comma-separated list of event names.  The
// matching happens in Go because the filter format is not indexable.
func (r *WebhookRepo) ListEnabledForEvent(ctx context.Context, event string) ([]model.Webhook, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+webhookColumns+` FROM webhooks WHERE enabled = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	hooks := make([]model.Webhook, 0)
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		if webhookMatches(w.Events, event) {
			hooks = append(hooks, w)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return hooks, nil
}

func webhookMatches(filter, event string) bool {
	if strings.TrimSpace(filter) == "*" {
		return true
	}
	for _, f := range strings.Split(filter, ",") {
		if strings.TrimSpace(f) == event {
			return true
		}
	}
	return false
}

// Update rewrites a webhook's mutable fields.  Returns
// ErrWebhookNotFound when the ID does not exist.
func (r *WebhookRepo) Update(ctx context.Context, w *model.Webhook) error {
	const q = `UPDATE webhooks SET name = ?, url = ?, secret = ?, events = ?, enabled = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, w.Name, w.URL, w.Secret, w.Events, w.Enabled, w.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// RowsAffected is 0 both for a missing row and for a no-op
		// update; confirm existence before reporting not found.
		if _, err := r.GetByID(ctx, w.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a webhook and, via the foreign key cascade, its
// delivery history.  Returns ErrWebhookNotFound when the ID does not
// exist.
func (r *WebhookRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM webhooks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrWebhookNotFound
	}
	return nil
}

// RecordDelivery appends one delivery attempt for a webhook.
func (r *WebhookRepo) RecordDelivery(ctx context.Context, d *model.WebhookDelivery) error {
	const q = `INSERT INTO webhook_deliveries (webhook_id, event, attempt, status_code, error)
			   VALUES (?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q, d.WebhookID, d.Event, d.Attempt, d.StatusCode, d.Error)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	return nil
}

// ListDeliveries returns the most recent delivery attempts for a
// webhook, newest first, capped at limit (default 50).
func (r *WebhookRepo) ListDeliveries(ctx context.Context, webhookID uint64, limit int) ([]model.WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT id, webhook_id, event, attempt, status_code, error, created_at
			   FROM webhook_deliveries WHERE webhook_id = ?
			   ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, webhookID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	deliveries := make([]model.WebhookDelivery, 0)
	for rows.Next() {
		var d model.WebhookDelivery
		if err := rows.Scan(&d.ID, &d.WebhookID, &d.Event, &d.Attempt, &d.StatusCode, &d.Error, &d.CreatedAt); err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return deliveries, nil
}
