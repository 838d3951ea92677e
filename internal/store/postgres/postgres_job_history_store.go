package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/RezaEskandarii/jobstatus/internal/state"
	"github.com/RezaEskandarii/jobstatus/types"
	"github.com/rs/zerolog/log"
)

const historyColumns = `job_id, status, success, result_payload, start_time, finish_time, username, function_name, args_payload, error_message, attempts`

type PostgresJobHistoryStore struct {
	db *sql.DB
}

func NewPostgresJobHistoryStore(db *sql.DB) *PostgresJobHistoryStore {
	return &PostgresJobHistoryStore{db: db}
}

func (s *PostgresJobHistoryStore) Upsert(ctx context.Context, record types.JobRecord) error {
	query := `
		INSERT INTO jobstatus_schema.job_history (` + historyColumns + `, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		ON CONFLICT (job_id) DO UPDATE SET
			status = EXCLUDED.status,
			success = EXCLUDED.success,
			result_payload = EXCLUDED.result_payload,
			start_time = EXCLUDED.start_time,
			finish_time = EXCLUDED.finish_time,
			username = EXCLUDED.username,
			function_name = EXCLUDED.function_name,
			args_payload = EXCLUDED.args_payload,
			error_message = EXCLUDED.error_message,
			attempts = EXCLUDED.attempts,
			updated_at = now()
	`

	args, err := recordArgs(record)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert job history %s: %w", record.JobID, err)
	}
	return nil
}

func (s *PostgresJobHistoryStore) Get(ctx context.Context, jobID string) (*types.JobRecord, error) {
	query := `SELECT ` + historyColumns + ` FROM jobstatus_schema.job_history WHERE job_id = $1`

	record, err := scanRecord(s.db.QueryRowContext(ctx, query, jobID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job history %s: %w", jobID, err)
	}
	return record, nil
}

func (s *PostgresJobHistoryStore) List(ctx context.Context, offset, limit int) (*types.PaginationResult[types.JobRecord], error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 100
	}

	var totalItems int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobstatus_schema.job_history`).Scan(&totalItems); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + historyColumns + `
		FROM jobstatus_schema.job_history
		ORDER BY finish_time DESC NULLS LAST, job_id
		LIMIT $1 OFFSET $2`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]types.JobRecord, 0, limit)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			log.Error().Err(err).Msg("scan job history row")
			continue
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	page := offset/limit + 1
	totalPages := int(math.Ceil(float64(totalItems) / float64(limit)))
	return &types.PaginationResult[types.JobRecord]{
		Items:           records,
		TotalItems:      totalItems,
		Page:            page,
		PageSize:        limit,
		TotalPages:      totalPages,
		HasNextPage:     offset+len(records) < totalItems,
		HasPreviousPage: offset > 0,
	}, nil
}

func (s *PostgresJobHistoryStore) Update(ctx context.Context, record types.JobRecord) (*types.JobRecord, error) {
	query := `
		UPDATE jobstatus_schema.job_history SET
			status = $2,
			success = $3,
			result_payload = $4,
			start_time = $5,
			finish_time = $6,
			username = $7,
			function_name = $8,
			args_payload = $9,
			error_message = $10,
			attempts = $11,
			updated_at = now()
		WHERE job_id = $1
	`

	args, err := recordArgs(record)
	if err != nil {
		return nil, err
	}
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update job history %s: %w", record.JobID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, nil
	}
	return &record, nil
}

func (s *PostgresJobHistoryStore) Delete(ctx context.Context, jobID string) (*types.JobRecord, error) {
	query := `DELETE FROM jobstatus_schema.job_history WHERE job_id = $1 RETURNING ` + historyColumns

	record, err := scanRecord(s.db.QueryRowContext(ctx, query, jobID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete job history %s: %w", jobID, err)
	}
	return record, nil
}

func (s *PostgresJobHistoryStore) Close() error {
	return s.db.Close()
}

func recordArgs(record types.JobRecord) ([]any, error) {
	var payload any
	if record.ResultPayload != nil {
		b, err := json.Marshal(record.ResultPayload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result payload: %w", err)
		}
		payload = b
	}

	return []any{
		record.JobID,
		string(record.Status),
		record.Success,
		payload,
		record.StartTime,
		record.FinishTime,
		nullString(record.Username),
		nullString(record.FunctionName),
		nullString(record.ArgsPayload),
		record.ErrorMessage,
		record.Attempts,
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*types.JobRecord, error) {
	var (
		record       types.JobRecord
		status       string
		payload      []byte
		startTime    sql.NullTime
		finishTime   sql.NullTime
		username     sql.NullString
		functionName sql.NullString
		argsPayload  sql.NullString
		errorMessage sql.NullString
	)

	err := row.Scan(
		&record.JobID, &status, &record.Success, &payload, &startTime, &finishTime,
		&username, &functionName, &argsPayload, &errorMessage, &record.Attempts,
	)
	if err != nil {
		return nil, err
	}

	record.Status = state.JobStatus(status)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &record.ResultPayload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result payload of %s: %w", record.JobID, err)
		}
	}
	if startTime.Valid {
		t := startTime.Time
		record.StartTime = &t
	}
	if finishTime.Valid {
		t := finishTime.Time
		record.FinishTime = &t
	}
	record.Username = username.String
	record.FunctionName = functionName.String
	record.ArgsPayload = argsPayload.String
	if errorMessage.Valid {
		msg := errorMessage.String
		record.ErrorMessage = &msg
	}
	return &record, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
