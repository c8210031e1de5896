package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/outreach-cli/internal/model"
)

// SQLiteStore implements CampaignStore and ResultStore on a local SQLite
// database. The table's integer primary key stands in for the spreadsheet
// row number.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Single writer connection; the driver serializes anyway and this keeps
	// in-memory databases on one connection.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS campaign_calls (
	row_number          INTEGER PRIMARY KEY AUTOINCREMENT,
	contact_name        TEXT NOT NULL DEFAULT '',
	target_phone_number TEXT NOT NULL DEFAULT '',
	caller_phone_number TEXT NOT NULL DEFAULT '',
	attempt_count       INTEGER NOT NULL DEFAULT 0,
	status              TEXT NOT NULL DEFAULT 'QUEUED',
	last_called_at      TEXT NOT NULL DEFAULT '',
	next_call_time      TEXT NOT NULL DEFAULT '',
	call_summary        TEXT NOT NULL DEFAULT '',
	correlation_id      TEXT NOT NULL DEFAULT '',
	notes               TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS call_results (
	id                  TEXT PRIMARY KEY,
	agent_id            TEXT NOT NULL DEFAULT '',
	timestamp           TEXT NOT NULL DEFAULT '',
	correlation_id      TEXT NOT NULL DEFAULT '',
	summary             TEXT NOT NULL DEFAULT '',
	name                TEXT NOT NULL DEFAULT '',
	email               TEXT NOT NULL DEFAULT '',
	phone               TEXT NOT NULL DEFAULT '',
	intent              TEXT NOT NULL DEFAULT '',
	vehicle_make        TEXT NOT NULL DEFAULT '',
	vehicle_model       TEXT NOT NULL DEFAULT '',
	vehicle_mileage     TEXT NOT NULL DEFAULT '',
	escalation_status   TEXT NOT NULL DEFAULT '',
	follow_up_due       TEXT NOT NULL DEFAULT '',
	call_duration       TEXT NOT NULL DEFAULT '',
	call_status         TEXT NOT NULL DEFAULT '',
	raw_payload_excerpt TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_campaign_calls_status ON campaign_calls(status);
CREATE INDEX IF NOT EXISTS idx_campaign_calls_correlation_id ON campaign_calls(correlation_id);
CREATE INDEX IF NOT EXISTS idx_call_results_correlation_id ON call_results(correlation_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// EnsureHeaders is a no-op: the schema is the header.
func (s *SQLiteStore) EnsureHeaders(ctx context.Context) error { return nil }

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Append(ctx context.Context, records []model.CallRecord) error {
	for _, rec := range records {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO campaign_calls
			 (contact_name, target_phone_number, caller_phone_number, attempt_count, status,
			  last_called_at, next_call_time, call_summary, correlation_id, notes)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ContactName, rec.TargetPhoneNumber, rec.CallerPhoneNumber, rec.AttemptCount,
			string(rec.Status), rec.LastCalledAt, rec.NextCallTime, rec.CallSummary,
			rec.CorrelationID, rec.Notes,
		)
		if err != nil {
			return eris.Wrap(err, "sqlite: append record")
		}
	}
	return nil
}

const sqliteRecordColumns = `row_number, contact_name, target_phone_number, caller_phone_number,
	attempt_count, status, last_called_at, next_call_time, call_summary, correlation_id, notes`

func (s *SQLiteStore) ListQueued(ctx context.Context) ([]model.CallRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteRecordColumns+` FROM campaign_calls WHERE status = ? ORDER BY row_number`,
		string(model.StatusQueued),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list queued")
	}
	defer rows.Close()

	var records []model.CallRecord
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list queued")
}

func (s *SQLiteStore) GetRow(ctx context.Context, rowNumber int) (model.CallRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRecordColumns+` FROM campaign_calls WHERE row_number = ?`, rowNumber)

	rec, err := scanSQLiteRecord(row)
	if err != nil {
		return model.CallRecord{}, eris.Wrapf(err, "sqlite: get row %d", rowNumber)
	}
	return rec, nil
}

func (s *SQLiteStore) UpdateRow(ctx context.Context, rec model.CallRecord) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE campaign_calls SET
			contact_name = ?, target_phone_number = ?, caller_phone_number = ?,
			attempt_count = ?, status = ?, last_called_at = ?, next_call_time = ?,
			call_summary = ?, correlation_id = ?, notes = ?
		 WHERE row_number = ?`,
		rec.ContactName, rec.TargetPhoneNumber, rec.CallerPhoneNumber, rec.AttemptCount,
		string(rec.Status), rec.LastCalledAt, rec.NextCallTime, rec.CallSummary,
		rec.CorrelationID, rec.Notes, rec.RowNumber,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update row %d", rec.RowNumber)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: row %d not found", rec.RowNumber)
	}
	return nil
}

func (s *SQLiteStore) FindByCorrelationID(ctx context.Context, correlationID string) (model.CallRecord, Outcome, error) {
	if correlationID == "" {
		return model.CallRecord{}, OutcomeNotFound, nil
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRecordColumns+` FROM campaign_calls WHERE correlation_id = ? LIMIT 1`,
		correlationID,
	)
	rec, err := scanSQLiteRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CallRecord{}, OutcomeNotFound, nil
	}
	if err != nil {
		return model.CallRecord{}, OutcomeLookupFailed, eris.Wrapf(err, "sqlite: find correlation %s", correlationID)
	}
	return rec, OutcomeFound, nil
}

func (s *SQLiteStore) StatusCounts(ctx context.Context) (map[model.CallStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM campaign_calls GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: status counts")
	}
	defer rows.Close()

	counts := make(map[model.CallStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan status count")
		}
		counts[model.CallStatus(status)] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: status counts")
}

func (s *SQLiteStore) AppendResult(ctx context.Context, agentID string, row model.ResultRow) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO call_results
		 (id, agent_id, timestamp, correlation_id, summary, name, email, phone, intent,
		  vehicle_make, vehicle_model, vehicle_mileage, escalation_status, follow_up_due,
		  call_duration, call_status, raw_payload_excerpt)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), agentID, row.Timestamp, row.CorrelationID, row.Summary,
		row.Name, row.Email, row.Phone, row.Intent, row.VehicleMake, row.VehicleModel,
		row.VehicleMileage, row.EscalationStatus, row.FollowUpDue, row.CallDuration,
		row.CallStatus, row.RawPayloadExcerpt,
	)
	return eris.Wrap(err, "sqlite: append result")
}

func (s *SQLiteStore) HasResult(ctx context.Context, correlationID string) (Outcome, error) {
	if correlationID == "" {
		return OutcomeNotFound, nil
	}

	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM call_results WHERE correlation_id = ? LIMIT 1`, correlationID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return OutcomeNotFound, nil
	}
	if err != nil {
		return OutcomeLookupFailed, eris.Wrapf(err, "sqlite: check result %s", correlationID)
	}
	return OutcomeFound, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRecord(row rowScanner) (model.CallRecord, error) {
	var rec model.CallRecord
	var status string
	err := row.Scan(
		&rec.RowNumber, &rec.ContactName, &rec.TargetPhoneNumber, &rec.CallerPhoneNumber,
		&rec.AttemptCount, &status, &rec.LastCalledAt, &rec.NextCallTime,
		&rec.CallSummary, &rec.CorrelationID, &rec.Notes,
	)
	if err != nil {
		return model.CallRecord{}, err
	}
	rec.Status = model.CallStatus(status)
	return rec, nil
}
