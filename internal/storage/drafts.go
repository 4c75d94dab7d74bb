package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ledgerline/ledgerline/internal/common"
	"github.com/ledgerline/ledgerline/internal/model"
)

// SaveDraft upserts the autosaved draft under the given form name. The
// draft is serialized as JSON so partial form state round-trips exactly.
func (s *SQLiteStorage) SaveDraft(ctx context.Context, name string, draft *model.TransactionDraft) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}
	if draft == nil {
		return fmt.Errorf("%w: draft", ErrNilParameter)
	}

	payload, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drafts (name, payload, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
			payload = excluded.payload,
			updated_at = CURRENT_TIMESTAMP`,
		name, string(payload))
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// GetDraft loads the autosaved draft for the given form name. Returns
// common.ErrNotFound when no draft is saved.
func (s *SQLiteStorage) GetDraft(ctx context.Context, name string) (*model.TransactionDraft, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM drafts WHERE name = ?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: draft %q", common.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}

	var draft model.TransactionDraft
	if err := json.Unmarshal([]byte(payload), &draft); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return &draft, nil
}

// ClearDraft removes the autosaved draft. Clearing an absent draft is not
// an error.
func (s *SQLiteStorage) ClearDraft(ctx context.Context, name string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to clear draft: %w", err)
	}
	return nil
}

// SubmissionRecord is one row of the local submission audit log.
type SubmissionRecord struct {
	ID            int64
	ClientName    string
	Amount        string
	Currency      string
	Outcome       string
	Message       string
	TransactionID int64
	SubmittedAt   string
}

// LogSubmission appends a terminal outcome to the local audit log.
func (s *SQLiteStorage) LogSubmission(ctx context.Context, draft *model.TransactionDraft, outcome model.SubmissionOutcome) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if draft == nil {
		return fmt.Errorf("%w: draft", ErrNilParameter)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (client_name, amount, currency, outcome, message, transaction_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		draft.ClientName, draft.Amount, string(draft.Currency),
		outcome.Kind.String(), outcome.Message, outcome.TransactionID)
	if err != nil {
		return fmt.Errorf("failed to log submission: %w", err)
	}
	return nil
}

// RecentSubmissions returns the latest log entries, newest first.
func (s *SQLiteStorage) RecentSubmissions(ctx context.Context, limit int) ([]SubmissionRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, client_name, amount, currency, outcome, COALESCE(message, ''), COALESCE(transaction_id, 0), submitted_at
		FROM submissions
		ORDER BY submitted_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var records []SubmissionRecord
	for rows.Next() {
		var rec SubmissionRecord
		if err := rows.Scan(&rec.ID, &rec.ClientName, &rec.Amount, &rec.Currency,
			&rec.Outcome, &rec.Message, &rec.TransactionID, &rec.SubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submissions: %w", err)
	}
	return records, nil
}
