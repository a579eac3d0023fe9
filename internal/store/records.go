// Package store persists submitted loan applications.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ethoscore/internal/common/logger"
	"ethoscore/internal/loan"
	"ethoscore/internal/models"

	"github.com/google/uuid"
)

var (
	ErrRecordWriteFailed = errors.New("RECORD_STORE_WRITE_FAILED")
	ErrMissingUser       = errors.New("USER_ID_REQUIRED")
)

// Records writes loan_applications rows, with a best-effort audit_log entry
// per write.
type Records struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

func NewRecords(db *sql.DB, log logger.Logger) *Records {
	return &Records{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "record-store"}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// AddLoanApplication stores the form under a new id.
func (r *Records) AddLoanApplication(ctx context.Context, userID string, category loan.LoanCategory, form *loan.ApplicationForm) (string, error) {
	rec, err := r.Insert(ctx, userID, category.String(), form.Values())
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

// Insert writes one record from already decoded application data.
func (r *Records) Insert(ctx context.Context, userID, loanType string, data map[string]interface{}) (*models.LoanApplicationRecord, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}

	rec := &models.LoanApplicationRecord{
		ID:              uuid.New().String(),
		UserID:          userID,
		LoanType:        loanType,
		ApplicationData: data,
		Status:          models.ApplicationStatusSubmitted,
		CreatedAt:       r.now().Format(time.RFC3339),
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal application data: %v", ErrRecordWriteFailed, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO loan_applications (id, user_id, loan_type, application_data, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.UserID, rec.LoanType, dataJSON, rec.Status, rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: insert failed: %v", ErrRecordWriteFailed, err)
	}

	auditJSON, _ := json.Marshal(map[string]interface{}{
		"userId":   rec.UserID,
		"loanType": rec.LoanType,
	})
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		"loan_application_created", "loan_application", rec.ID, auditJSON, rec.CreatedAt,
	); err != nil {
		r.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":         err,
			"applicationId": rec.ID,
		})
	}

	r.logger.Info("loan application stored", map[string]interface{}{
		"applicationId": rec.ID,
		"userId":        rec.UserID,
		"loanType":      rec.LoanType,
	})
	return rec, nil
}

// ListByUser returns a user's records, newest first.
func (r *Records) ListByUser(ctx context.Context, userID string, limit int) ([]models.LoanApplicationRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, loan_type, application_data, status, created_at
		FROM loan_applications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query loan applications: %w", err)
	}
	defer rows.Close()

	var out []models.LoanApplicationRecord
	for rows.Next() {
		var (
			rec       models.LoanApplicationRecord
			dataJSON  []byte
			createdAt time.Time
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.LoanType, &dataJSON, &rec.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan loan application: %w", err)
		}
		if err := json.Unmarshal(dataJSON, &rec.ApplicationData); err != nil {
			return nil, fmt.Errorf("decode application data: %w", err)
		}
		rec.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		out = append(out, rec)
	}
	return out, rows.Err()
}
