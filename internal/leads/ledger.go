package leads

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wolfman30/leadcenter/pkg/logging"
)

// Ledger applies operator-driven status changes. Every change updates the
// lead and appends an immutable transition record in one transaction; a
// failure of either leaves no trace of the other.
type Ledger struct {
	db     DB
	vocab  Vocabulary
	logger *logging.Logger
}

// NewLedger creates a status ledger over the given vocabulary.
func NewLedger(db DB, vocab Vocabulary, logger *logging.Logger) *Ledger {
	if logger == nil {
		logger = logging.Default()
	}
	return &Ledger{db: db, vocab: vocab, logger: logger}
}

// ChangeStatus moves a lead to newStatus on behalf of an operator and
// returns the appended transition. ErrLeadNotFound when the lead does not
// exist, ErrInvalidStatus when newStatus is outside the vocabulary.
func (g *Ledger) ChangeStatus(ctx context.Context, leadID int64, newStatus string, operatorID int64) (*StatusTransition, error) {
	if !g.vocab.Valid(newStatus) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}

	tx, err := g.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("leads: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var oldStatus string
	err = tx.QueryRow(ctx, `SELECT status FROM leads WHERE id = $1 FOR UPDATE`, leadID).Scan(&oldStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("leads: read status: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE leads SET status = $1, updated_at = now() WHERE id = $2`,
		newStatus, leadID); err != nil {
		return nil, fmt.Errorf("leads: update status: %w", err)
	}

	t := StatusTransition{
		LeadID:    leadID,
		UserID:    operatorID,
		OldStatus: &oldStatus,
		NewStatus: newStatus,
	}

	if err := tx.QueryRow(ctx, `
		INSERT INTO status_transitions (lead_id, user_id, old_status, new_status, changed_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, changed_at`,
		t.LeadID, t.UserID, t.OldStatus, t.NewStatus).Scan(&t.ID, &t.ChangedAt); err != nil {
		return nil, fmt.Errorf("leads: append transition: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("leads: commit: %w", err)
	}

	g.logger.Info("lead status changed",
		"lead_id", leadID,
		"operator_id", operatorID,
		"old_status", oldStatus,
		"new_status", newStatus,
	)
	return &t, nil
}
