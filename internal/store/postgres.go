package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
)

// PgxPool is the subset of pgxpool.Pool the store uses. Tests substitute a
// pgxmock pool.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements CampaignStore and ResultStore on PostgreSQL.
type PostgresStore struct {
	pool PgxPool
}

// NewPostgres connects a pgx pool to the given connection string.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool PgxPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS campaign_calls (
	row_number          BIGSERIAL PRIMARY KEY,
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
	id                  UUID PRIMARY KEY,
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

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// EnsureHeaders is a no-op: the schema is the header.
func (s *PostgresStore) EnsureHeaders(ctx context.Context) error { return nil }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Append(ctx context.Context, records []model.CallRecord) error {
	for _, rec := range records {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO campaign_calls
			 (contact_name, target_phone_number, caller_phone_number, attempt_count, status,
			  last_called_at, next_call_time, call_summary, correlation_id, notes)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			rec.ContactName, rec.TargetPhoneNumber, rec.CallerPhoneNumber, rec.AttemptCount,
			string(rec.Status), rec.LastCalledAt, rec.NextCallTime, rec.CallSummary,
			rec.CorrelationID, rec.Notes,
		)
		if err != nil {
			return eris.Wrap(err, "postgres: append record")
		}
	}
	return nil
}

const postgresRecordColumns = `row_number, contact_name, target_phone_number, caller_phone_number,
	attempt_count, status, last_called_at, next_call_time, call_summary, correlation_id, notes`

func (s *PostgresStore) ListQueued(ctx context.Context) ([]model.CallRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+postgresRecordColumns+` FROM campaign_calls WHERE status = $1 ORDER BY row_number`,
		string(model.StatusQueued),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list queued")
	}
	defer rows.Close()

	var records []model.CallRecord
	for rows.Next() {
		rec, err := scanPostgresRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list queued")
}

func (s *PostgresStore) GetRow(ctx context.Context, rowNumber int) (model.CallRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+postgresRecordColumns+` FROM campaign_calls WHERE row_number = $1`, rowNumber)

	rec, err := scanPostgresRecord(row)
	if err != nil {
		return model.CallRecord{}, eris.Wrapf(err, "postgres: get row %d", rowNumber)
	}
	return rec, nil
}

func (s *PostgresStore) UpdateRow(ctx context.Context, rec model.CallRecord) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE campaign_calls SET
			contact_name = $1, target_phone_number = $2, caller_phone_number = $3,
			attempt_count = $4, status = $5, last_called_at = $6, next_call_time = $7,
			call_summary = $8, correlation_id = $9, notes = $10
		 WHERE row_number = $11`,
		rec.ContactName, rec.TargetPhoneNumber, rec.CallerPhoneNumber, rec.AttemptCount,
		string(rec.Status), rec.LastCalledAt, rec.NextCallTime, rec.CallSummary,
		rec.CorrelationID, rec.Notes, rec.RowNumber,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update row %d", rec.RowNumber)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: row %d not found", rec.RowNumber)
	}
	return nil
}

func (s *PostgresStore) FindByCorrelationID(ctx context.Context, correlationID string) (model.CallRecord, Outcome, error) {
	if correlationID == "" {
		return model.CallRecord{}, OutcomeNotFound, nil
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+postgresRecordColumns+` FROM campaign_calls WHERE correlation_id = $1 LIMIT 1`,
		correlationID,
	)
	rec, err := scanPostgresRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.CallRecord{}, OutcomeNotFound, nil
	}
	if err != nil {
		return model.CallRecord{}, OutcomeLookupFailed, eris.Wrapf(err, "postgres: find correlation %s", correlationID)
	}
	return rec, OutcomeFound, nil
}

func (s *PostgresStore) StatusCounts(ctx context.Context) (map[model.CallStatus]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM campaign_calls GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: status counts")
	}
	defer rows.Close()

	counts := make(map[model.CallStatus]int)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan status count")
		}
		counts[model.CallStatus(status)] = int(n)
	}
	return counts, eris.Wrap(rows.Err(), "postgres: status counts")
}

func (s *PostgresStore) AppendResult(ctx context.Context, agentID string, row model.ResultRow) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO call_results
		 (id, agent_id, timestamp, correlation_id, summary, name, email, phone, intent,
		  vehicle_make, vehicle_model, vehicle_mileage, escalation_status, follow_up_due,
		  call_duration, call_status, raw_payload_excerpt)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		uuid.New().String(), agentID, row.Timestamp, row.CorrelationID, row.Summary,
		row.Name, row.Email, row.Phone, row.Intent, row.VehicleMake, row.VehicleModel,
		row.VehicleMileage, row.EscalationStatus, row.FollowUpDue, row.CallDuration,
		row.CallStatus, row.RawPayloadExcerpt,
	)
	return eris.Wrap(err, "postgres: append result")
}

func (s *PostgresStore) HasResult(ctx context.Context, correlationID string) (Outcome, error) {
	if correlationID == "" {
		return OutcomeNotFound, nil
	}

	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM call_results WHERE correlation_id = $1 LIMIT 1`, correlationID,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return OutcomeNotFound, nil
	}
	if err != nil {
		return OutcomeLookupFailed, eris.Wrapf(err, "postgres: check result %s", correlationID)
	}
	return OutcomeFound, nil
}

func scanPostgresRecord(row pgx.Row) (model.CallRecord, error) {
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
