package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"carecount/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS volunteers (
  email TEXT PRIMARY KEY,
  last_login_at TEXT,
  shift_started_at TEXT,
  shift_ended_at TEXT,
  total_hours REAL
);

CREATE TABLE IF NOT EXISTS visits (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  visit_code TEXT NOT NULL UNIQUE,
  started_at TEXT NOT NULL,
  ended_at TEXT,
  created_by TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_visits_started ON visits(started_at);

CREATE TABLE IF NOT EXISTS visit_items_p (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  visit_id INTEGER NOT NULL,
  volunteer TEXT NOT NULL,
  item_name TEXT NOT NULL,
  qty INTEGER NOT NULL,
  category TEXT,
  unit TEXT,
  barcode TEXT,
  timestamp TEXT NOT NULL,
  ingest_id TEXT NOT NULL UNIQUE,
  FOREIGN KEY(visit_id) REFERENCES visits(id)
);
CREATE INDEX IF NOT EXISTS idx_items_p_visit ON visit_items_p(visit_id);
CREATE INDEX IF NOT EXISTS idx_items_p_volunteer ON visit_items_p(volunteer);

CREATE TABLE IF NOT EXISTS visit_items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  visit_id INTEGER NOT NULL,
  volunteer TEXT NOT NULL,
  item_name TEXT NOT NULL,
  qty INTEGER NOT NULL,
  category TEXT,
  unit TEXT,
  barcode TEXT,
  timestamp TEXT NOT NULL,
  FOREIGN KEY(visit_id) REFERENCES visits(id)
);
CREATE INDEX IF NOT EXISTS idx_items_visit ON visit_items(visit_id);

CREATE TABLE IF NOT EXISTS events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  actor_email TEXT,
  action TEXT NOT NULL,
  details_json TEXT NOT NULL,
  created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// ---- volunteers ----

func (d *DB) SignInVolunteer(email, nowISO string) error {
	_, err := d.conn.Exec(`
INSERT INTO volunteers (email, last_login_at, shift_started_at, shift_ended_at)
VALUES (?, ?, ?, NULL)
ON CONFLICT(email) DO UPDATE SET
  last_login_at=excluded.last_login_at,
  shift_started_at=excluded.shift_started_at,
  shift_ended_at=NULL
`, email, nowISO, nowISO)
	return err
}

func (d *DB) EndShift(email, nowISO string) error {
	_, err := d.conn.Exec(`UPDATE volunteers SET shift_ended_at = ? WHERE email = ?`, nowISO, email)
	return err
}

func (d *DB) GetVolunteer(email string) (*internal.VolunteerRow, error) {
	var row internal.VolunteerRow
	err := d.conn.QueryRow(`
SELECT email, last_login_at, shift_started_at, shift_ended_at, total_hours
FROM volunteers WHERE email = ?
`, email).Scan(&row.Email, &row.LastLoginAt, &row.ShiftStartedAt, &row.ShiftEndedAt, &row.TotalHours)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ---- visits ----

// StartVisit inserts a new visit with a readable code:
// V-<today's sequence>-<yyyymmdd>-<short uuid>.
func (d *DB) StartVisit(createdBy string, now time.Time) (internal.VisitRow, error) {
	day := now.Format("2006-01-02")
	var seq int
	if err := d.conn.QueryRow(`SELECT COUNT(*) FROM visits WHERE substr(started_at, 1, 10) = ?`, day).Scan(&seq); err != nil {
		return internal.VisitRow{}, err
	}
	code := fmt.Sprintf("V-%d-%s-%s", seq+1, now.Format("20060102"), uuid.NewString()[:6])

	startedAt := now.UTC().Format(time.RFC3339)
	result, err := d.conn.Exec(`
INSERT INTO visits (visit_code, started_at, created_by) VALUES (?, ?, ?)
`, code, startedAt, createdBy)
	if err != nil {
		return internal.VisitRow{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return internal.VisitRow{}, err
	}
	return internal.VisitRow{ID: int(id), VisitCode: code, StartedAt: startedAt, CreatedBy: createdBy}, nil
}

func (d *DB) EndVisit(visitID int, endedAtISO string) error {
	result, err := d.conn.Exec(`UPDATE visits SET ended_at = ? WHERE id = ? AND ended_at IS NULL`, endedAtISO, visitID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("visit %d not found or already ended", visitID)
	}
	return nil
}

func (d *DB) GetVisit(visitID int) (*internal.VisitRow, error) {
	var row internal.VisitRow
	err := d.conn.QueryRow(`
SELECT id, visit_code, started_at, ended_at, created_by FROM visits WHERE id = ?
`, visitID).Scan(&row.ID, &row.VisitCode, &row.StartedAt, &row.EndedAt, &row.CreatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ActiveVisit returns the most recently started open visit, or nil.
func (d *DB) ActiveVisit() (*internal.VisitRow, error) {
	var row internal.VisitRow
	err := d.conn.QueryRow(`
SELECT id, visit_code, started_at, ended_at, created_by
FROM visits WHERE ended_at IS NULL ORDER BY started_at DESC, id DESC LIMIT 1
`).Scan(&row.ID, &row.VisitCode, &row.StartedAt, &row.EndedAt, &row.CreatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ---- item store (pipeline.ItemStore) ----

// ValidatedIngest is the local rendition of the server-side validated write:
// business checks inside one transaction, then an idempotent insert keyed on
// the ingest id. A duplicate submission is a no-op reported as success.
func (d *DB) ValidatedIngest(ctx context.Context, item internal.LoggedItem) (bool, string, error) {
	if strings.TrimSpace(item.ItemName) == "" {
		return false, "item name is required", nil
	}
	if item.Qty < 1 {
		return false, "quantity must be at least 1", nil
	}
	if strings.TrimSpace(item.VolunteerEmail) == "" {
		return false, "volunteer email is required", nil
	}

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, "", err
	}
	defer func() { _ = tx.Rollback() }()

	var endedAt *string
	err = tx.QueryRowContext(ctx, `SELECT ended_at FROM visits WHERE id = ?`, item.VisitID).Scan(&endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Sprintf("visit %d does not exist", item.VisitID), nil
	}
	if err != nil {
		return false, "", err
	}
	if endedAt != nil {
		return false, fmt.Sprintf("visit %d is already checked out", item.VisitID), nil
	}

	result, err := tx.ExecContext(ctx, `
INSERT INTO visit_items_p (visit_id, volunteer, item_name, qty, category, unit, barcode, timestamp, ingest_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(ingest_id) DO NOTHING
`, item.VisitID, item.VolunteerEmail, item.ItemName, item.Qty, item.Category, item.Unit, item.Barcode, item.Timestamp, item.IngestID)
	if err != nil {
		return false, "", err
	}
	if err := tx.Commit(); err != nil {
		return false, "", err
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return true, "duplicate submission ignored", nil
	}
	return true, "ok", nil
}

func (d *DB) InsertPreferred(ctx context.Context, item internal.LoggedItem) error {
	_, err := d.conn.ExecContext(ctx, `
INSERT INTO visit_items_p (visit_id, volunteer, item_name, qty, category, unit, barcode, timestamp, ingest_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(ingest_id) DO NOTHING
`, item.VisitID, item.VolunteerEmail, item.ItemName, item.Qty, item.Category, item.Unit, item.Barcode, item.Timestamp, item.IngestID)
	if err != nil && isMissingSchema(err) {
		return &internal.SchemaError{Table: internal.TablePreferred, Code: "sqlite", Detail: err.Error()}
	}
	return err
}

func (d *DB) InsertLegacy(ctx context.Context, item internal.LoggedItem) error {
	_, err := d.conn.ExecContext(ctx, `
INSERT INTO visit_items (visit_id, volunteer, item_name, qty, category, unit, barcode, timestamp)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, item.VisitID, item.VolunteerEmail, item.ItemName, item.Qty, item.Category, item.Unit, item.Barcode, item.Timestamp)
	return err
}

func isMissingSchema(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no such table") || strings.Contains(msg, "no column") || strings.Contains(msg, "has no column")
}

// ---- item views ----

func (d *DB) ListVisitItems(visitID, limit int) ([]internal.ItemRow, error) {
	if limit <= 0 {
		limit = 500
	}
	preferred, err := d.queryItems(`
SELECT id, visit_id, volunteer, item_name, qty, category, unit, barcode, timestamp, ingest_id
FROM visit_items_p WHERE visit_id = ? ORDER BY timestamp DESC LIMIT ?
`, internal.TablePreferred, visitID, limit)
	if err != nil {
		return nil, err
	}
	legacy, err := d.queryItems(`
SELECT id, visit_id, volunteer, item_name, qty, category, unit, barcode, timestamp, NULL
FROM visit_items WHERE visit_id = ? ORDER BY timestamp DESC LIMIT ?
`, internal.TableLegacy, visitID, limit)
	if err != nil {
		return nil, err
	}

	// Preferred rows first, legacy rows filling the remainder; the cap is on
	// the merged result, not per table.
	merged := append(preferred, legacy...)
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

func (d *DB) queryItems(query string, table internal.ItemTable, args ...any) ([]internal.ItemRow, error) {
	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ItemRow
	for rows.Next() {
		var row internal.ItemRow
		if err := rows.Scan(
			&row.ID, &row.VisitID, &row.VolunteerEmail, &row.ItemName, &row.Qty,
			&row.Category, &row.Unit, &row.Barcode, &row.Timestamp, &row.IngestID,
		); err != nil {
			return nil, err
		}
		row.Table = table
		out = append(out, row)
	}
	return out, rows.Err()
}

// DeleteItem removes a mis-logged row. The two tables auto-increment
// independently, so ids alone are ambiguous; callers name the table the row
// was listed from (ItemRow.Table).
func (d *DB) DeleteItem(table internal.ItemTable, itemID int) error {
	switch table {
	case internal.TablePreferred, internal.TableLegacy:
	default:
		return fmt.Errorf("unknown item table: %q", table)
	}

	result, err := d.conn.Exec(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table), itemID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("item %d not found in %s", itemID, table)
	}
	return nil
}

func (d *DB) ItemsLoggedOnDay(email, day string) (int, error) {
	var preferred, legacy int
	if err := d.conn.QueryRow(`
SELECT COUNT(*) FROM visit_items_p WHERE volunteer = ? AND substr(timestamp, 1, 10) = ?
`, email, day).Scan(&preferred); err != nil {
		return 0, err
	}
	if err := d.conn.QueryRow(`
SELECT COUNT(*) FROM visit_items WHERE volunteer = ? AND substr(timestamp, 1, 10) = ?
`, email, day).Scan(&legacy); err != nil {
		return 0, err
	}
	return preferred + legacy, nil
}

func (d *DB) LifetimeItems(email string) (int, error) {
	var preferred, legacy int
	if err := d.conn.QueryRow(`SELECT COUNT(*) FROM visit_items_p WHERE volunteer = ?`, email).Scan(&preferred); err != nil {
		return 0, err
	}
	if err := d.conn.QueryRow(`SELECT COUNT(*) FROM visit_items WHERE volunteer = ?`, email).Scan(&legacy); err != nil {
		return 0, err
	}
	return preferred + legacy, nil
}

func (d *DB) DailyActivity(day string) (internal.DailyActivity, error) {
	out := internal.DailyActivity{Day: day}
	if err := d.conn.QueryRow(`SELECT COUNT(*) FROM visits WHERE substr(started_at, 1, 10) = ?`, day).Scan(&out.Visits); err != nil {
		return out, err
	}
	var preferred, legacy int
	if err := d.conn.QueryRow(`SELECT COUNT(*) FROM visit_items_p WHERE substr(timestamp, 1, 10) = ?`, day).Scan(&preferred); err != nil {
		return out, err
	}
	if err := d.conn.QueryRow(`SELECT COUNT(*) FROM visit_items WHERE substr(timestamp, 1, 10) = ?`, day).Scan(&legacy); err != nil {
		return out, err
	}
	out.Items = preferred + legacy
	return out, nil
}

// ---- events ----

// InsertEvent writes an audit row. Callers treat it as best-effort.
func (d *DB) InsertEvent(actorEmail, action string, details map[string]any) error {
	detailsJSON, _ := json.Marshal(details)
	_, err := d.conn.Exec(`
INSERT INTO events (actor_email, action, details_json) VALUES (?, ?, ?)
`, actorEmail, action, string(detailsJSON))
	return err
}
