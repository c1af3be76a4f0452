// Package audit keeps a persistent trail of gateway calls
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alexbotov/alidayu/internal/log"
	"github.com/alexbotov/alidayu/pkg/alidayu"
)

// Call is one audited gateway call
type Call struct {
	ID           string        `json:"id"`
	Method       string        `json:"method"`
	Endpoint     string        `json:"endpoint"`
	Format       string        `json:"format"`
	SignMethod   string        `json:"sign_method"`
	Outcome      string        `json:"outcome"`
	ErrorCode    *int          `json:"error_code,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
	Caller       string        `json:"caller,omitempty"`
}

type callerKey struct{}

// WithCaller attaches the authenticated caller to ctx so that it ends up in
// the audit row of calls made with that context.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFromContext returns the caller stored by WithCaller
func CallerFromContext(ctx context.Context) string {
	caller, _ := ctx.Value(callerKey{}).(string)
	return caller
}

// Service provides audit functionality
type Service struct {
	db     *sql.DB
	logger log.Logger
}

var _ alidayu.Observer = (*Service)(nil)

// New creates a new audit service
func New(db *sql.DB, logger log.Logger) *Service {
	return &Service{db: db, logger: logger.Named("audit")}
}

// ObserveCall implements alidayu.Observer. Storage failures are logged and
// never affect the call result.
func (s *Service) ObserveCall(ctx context.Context, rec *alidayu.CallRecord) {
	call := FromRecord(rec)
	call.Caller = CallerFromContext(ctx)

	if err := s.LogCall(ctx, call); err != nil {
		s.logger.Error("failed to store audit record", "method", rec.Method, "error", err)
	}
}

// FromRecord converts an observer record into an audit row
func FromRecord(rec *alidayu.CallRecord) *Call {
	call := &Call{
		Method:     rec.Method,
		Endpoint:   rec.Endpoint,
		Format:     string(rec.Format),
		SignMethod: string(rec.SignMethod),
		Outcome:    alidayu.Classify(rec.Err),
		StartedAt:  rec.StartedAt.UTC(),
		Duration:   rec.Duration,
	}
	if rec.Err != nil {
		call.ErrorMessage = rec.Err.Error()
		if apiErr, ok := alidayu.IsAPIError(rec.Err); ok {
			code := apiErr.Code
			call.ErrorCode = &code
		}
	}
	return call
}

// LogCall stores a call record
func (s *Service) LogCall(ctx context.Context, call *Call) error {
	if call.ID == "" {
		call.ID = uuid.New().String()
	}
	if call.StartedAt.IsZero() {
		call.StartedAt = time.Now().UTC()
	}

	var (
		errorCode sql.NullInt64
		errorMsg  sql.NullString
		caller    sql.NullString
	)
	if call.ErrorCode != nil {
		errorCode = sql.NullInt64{Int64: int64(*call.ErrorCode), Valid: true}
	}
	if call.ErrorMessage != "" {
		errorMsg = sql.NullString{String: call.ErrorMessage, Valid: true}
	}
	if call.Caller != "" {
		caller = sql.NullString{String: call.Caller, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO gateway_calls (id, method, endpoint, format, sign_method, outcome, error_code, error_message, started_at, duration_ms, caller)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, call.ID, call.Method, call.Endpoint, call.Format, call.SignMethod, call.Outcome,
		errorCode, errorMsg, call.StartedAt, call.Duration.Milliseconds(), caller)
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}

	return nil
}

// CallFilter defines criteria for filtering audited calls
type CallFilter struct {
	Method  string
	Outcome string
	Caller  string
	From    time.Time
	To      time.Time
	Limit   int
}

// GetCalls retrieves audited calls, newest first
func (s *Service) GetCalls(ctx context.Context, filter *CallFilter) ([]*Call, error) {
	query := `SELECT id, method, endpoint, format, sign_method, outcome, error_code, error_message, started_at, duration_ms, caller
			  FROM gateway_calls WHERE 1=1`
	args := []interface{}{}
	paramIdx := 1

	if filter != nil {
		if filter.Method != "" {
			query += fmt.Sprintf(" AND method = $%d", paramIdx)
			args = append(args, filter.Method)
			paramIdx++
		}
		if filter.Outcome != "" {
			query += fmt.Sprintf(" AND outcome = $%d", paramIdx)
			args = append(args, filter.Outcome)
			paramIdx++
		}
		if filter.Caller != "" {
			query += fmt.Sprintf(" AND caller = $%d", paramIdx)
			args = append(args, filter.Caller)
			paramIdx++
		}
		if !filter.From.IsZero() {
			query += fmt.Sprintf(" AND started_at >= $%d", paramIdx)
			args = append(args, filter.From)
			paramIdx++
		}
		if !filter.To.IsZero() {
			query += fmt.Sprintf(" AND started_at <= $%d", paramIdx)
			args = append(args, filter.To)
			paramIdx++
		}
	}

	query += " ORDER BY started_at DESC"

	if filter != nil && filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", paramIdx)
		args = append(args, filter.Limit)
	} else {
		query += " LIMIT 100"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calls []*Call
	for rows.Next() {
		var (
			call       Call
			errorCode  sql.NullInt64
			errorMsg   sql.NullString
			caller     sql.NullString
			durationMS int64
		)
		err := rows.Scan(&call.ID, &call.Method, &call.Endpoint, &call.Format, &call.SignMethod, &call.Outcome,
			&errorCode, &errorMsg, &call.StartedAt, &durationMS, &caller)
		if err != nil {
			return nil, err
		}

		if errorCode.Valid {
			code := int(errorCode.Int64)
			call.ErrorCode = &code
		}
		call.ErrorMessage = errorMsg.String
		call.Caller = caller.String
		call.Duration = time.Duration(durationMS) * time.Millisecond

		calls = append(calls, &call)
	}

	return calls, rows.Err()
}
