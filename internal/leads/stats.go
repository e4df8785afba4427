package leads

import (
	"context"
	"fmt"
	"time"
)

// Stats is the aggregate reporting snapshot. "Today" boundaries use the
// configured fixed zone, not the server's wall clock.
type Stats struct {
	TotalLeads     int64            `json:"total_leads"`
	ByStatus       map[string]int64 `json:"by_status"`
	CreatedToday   int64            `json:"created_today"`
	ContactedToday int64            `json:"contacted_today"`
	Operators      []OperatorStats  `json:"operators"`
	GeneratedAt    time.Time        `json:"generated_at"`
}

// OperatorStats counts contacted transitions performed by one operator.
type OperatorStats struct {
	UserID         int64  `json:"user_id"`
	Username       string `json:"username"`
	ContactedTotal int64  `json:"contacted_total"`
	ContactedToday int64  `json:"contacted_today"`
}

// StatsRepository aggregates lead and transition counters.
type StatsRepository struct {
	db    DB
	vocab Vocabulary
	loc   *time.Location
}

// NewStatsRepository creates a stats repository using loc for day boundaries.
func NewStatsRepository(db DB, vocab Vocabulary, loc *time.Location) *StatsRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &StatsRepository{db: db, vocab: vocab, loc: loc}
}

// Snapshot computes the aggregate counters.
func (r *StatsRepository) Snapshot(ctx context.Context) (*Stats, error) {
	now := time.Now().In(r.loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc)
	contacted := r.vocab.Contacted()

	stats := &Stats{
		ByStatus:    make(map[string]int64, len(r.vocab.All())),
		Operators:   []OperatorStats{},
		GeneratedAt: now,
	}
	for _, s := range r.vocab.All() {
		stats.ByStatus[s] = 0
	}

	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM leads GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("leads stats: count by status: %w", err)
	}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("leads stats: scan status count: %w", err)
		}
		stats.ByStatus[status] = n
		stats.TotalLeads += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads stats: status counts: %w", err)
	}

	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM leads WHERE created_at >= $1`, midnight).
		Scan(&stats.CreatedToday); err != nil {
		return nil, fmt.Errorf("leads stats: created today: %w", err)
	}

	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM status_transitions WHERE new_status = ANY($1) AND changed_at >= $2`,
		contacted, midnight).Scan(&stats.ContactedToday); err != nil {
		return nil, fmt.Errorf("leads stats: contacted today: %w", err)
	}

	opRows, err := r.db.Query(ctx, `
		SELECT u.id, u.username,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE t.changed_at >= $2)
		FROM status_transitions t
		JOIN users u ON u.id = t.user_id
		WHERE t.new_status = ANY($1)
		GROUP BY u.id, u.username
		ORDER BY COUNT(*) DESC`, contacted, midnight)
	if err != nil {
		return nil, fmt.Errorf("leads stats: operator counts: %w", err)
	}
	defer opRows.Close()
	for opRows.Next() {
		var op OperatorStats
		if err := opRows.Scan(&op.UserID, &op.Username, &op.ContactedTotal, &op.ContactedToday); err != nil {
			return nil, fmt.Errorf("leads stats: scan operator: %w", err)
		}
		stats.Operators = append(stats.Operators, op)
	}
	return stats, opRows.Err()
}
