package leads

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of pgxpool.Pool the lead repositories need; tests inject
// a pgxmock pool through it.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository stores leads in the relational database.
type Repository struct {
	db DB
}

// NewRepository initializes a repo backed by pgxpool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for testing.
func NewRepositoryWithDB(db DB) *Repository {
	return &Repository{db: db}
}

const leadColumns = `id, subscriber_id, first_name, last_name, profile_pic, locale, timezone,
	       gender, phone, email, whatsapp_phone, subscribed_at, last_interaction_at,
	       status, hotel_name, stay_conditions, quoted_price, raw_data, created_at, updated_at`

// UpsertFromSource inserts a lead or refreshes its profile, promotion and
// raw-snapshot fields by subscriber id. Status, subscriber id and created_at
// are never touched on update; initialStatus applies to inserts only.
// Returns whether a new row was created.
func (r *Repository) UpsertFromSource(ctx context.Context, l *Lead, initialStatus string) (bool, error) {
	query := `
		INSERT INTO leads (subscriber_id, first_name, last_name, profile_pic, locale, timezone,
		    gender, phone, email, whatsapp_phone, subscribed_at, last_interaction_at,
		    status, hotel_name, stay_conditions, quoted_price, raw_data, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,now(),now())
		ON CONFLICT (subscriber_id) DO UPDATE SET
		    first_name=EXCLUDED.first_name, last_name=EXCLUDED.last_name,
		    profile_pic=EXCLUDED.profile_pic, locale=EXCLUDED.locale,
		    timezone=EXCLUDED.timezone, gender=EXCLUDED.gender, phone=EXCLUDED.phone,
		    email=EXCLUDED.email, whatsapp_phone=EXCLUDED.whatsapp_phone,
		    subscribed_at=EXCLUDED.subscribed_at, last_interaction_at=EXCLUDED.last_interaction_at,
		    hotel_name=EXCLUDED.hotel_name, stay_conditions=EXCLUDED.stay_conditions,
		    quoted_price=EXCLUDED.quoted_price, raw_data=EXCLUDED.raw_data, updated_at=now()
		RETURNING id, (xmax = 0)`

	var inserted bool
	if err := r.db.QueryRow(ctx, query,
		l.SubscriberID, l.FirstName, l.LastName, l.ProfilePic, l.Locale, l.Timezone,
		l.Gender, l.Phone, l.Email, l.WhatsAppPhone, l.SubscribedAt, l.LastInteractionAt,
		initialStatus, l.HotelName, l.StayConditions, l.QuotedPrice, l.RawData,
	).Scan(&l.ID, &inserted); err != nil {
		return false, fmt.Errorf("leads: upsert failed: %w", err)
	}
	return inserted, nil
}

// GetByID fetches a lead by its local id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Lead, error) {
	row := r.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	var l Lead
	if err := scanLead(row, &l); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return &l, nil
}

// Filter narrows and pages the lead listing. Zero values mean "no filter";
// out-of-range page values are clamped rather than rejected.
type Filter struct {
	Page     int
	PageSize int
	Search   string
	Status   string
}

func (f *Filter) clamp() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}
}

// List returns one page of leads ordered by updated_at descending, plus the
// total count matching the filters. Search matches name and phone/handle
// fields case-insensitively; status is an exact match; both AND-combine.
func (r *Repository) List(ctx context.Context, f Filter) ([]Lead, int, error) {
	f.clamp()

	where := ""
	var args []any
	argIdx := 1
	if f.Search != "" {
		where += fmt.Sprintf(` WHERE (first_name ILIKE '%%' || $%d || '%%'
		    OR last_name ILIKE '%%' || $%d || '%%'
		    OR phone ILIKE '%%' || $%d || '%%'
		    OR whatsapp_phone ILIKE '%%' || $%d || '%%')`, argIdx, argIdx, argIdx, argIdx)
		args = append(args, f.Search)
		argIdx++
	}
	if f.Status != "" {
		if where == "" {
			where = " WHERE"
		} else {
			where += " AND"
		}
		where += fmt.Sprintf(" status = $%d", argIdx)
		args = append(args, f.Status)
		argIdx++
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM leads`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("leads: count failed: %w", err)
	}

	query := fmt.Sprintf(`SELECT `+leadColumns+` FROM leads%s ORDER BY updated_at DESC LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, f.PageSize, (f.Page-1)*f.PageSize)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("leads: list failed: %w", err)
	}
	defer rows.Close()

	out := []Lead{}
	for rows.Next() {
		var l Lead
		if err := scanLead(rows, &l); err != nil {
			return nil, 0, fmt.Errorf("leads: scan failed: %w", err)
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}

// RecentTransitions returns the most recent status transitions joined with
// operator and lead names, newest first.
func (r *Repository) RecentTransitions(ctx context.Context, limit int) ([]TransitionLogEntry, error) {
	if limit < 1 || limit > 500 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT t.id, t.lead_id, trim(concat(l.first_name, ' ', l.last_name)), u.username,
		       t.old_status, t.new_status, t.changed_at
		FROM status_transitions t
		JOIN leads l ON l.id = t.lead_id
		JOIN users u ON u.id = t.user_id
		ORDER BY t.changed_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("leads: transition log failed: %w", err)
	}
	defer rows.Close()

	out := []TransitionLogEntry{}
	for rows.Next() {
		var e TransitionLogEntry
		if err := rows.Scan(&e.ID, &e.LeadID, &e.LeadName, &e.Operator,
			&e.OldStatus, &e.NewStatus, &e.ChangedAt); err != nil {
			return nil, fmt.Errorf("leads: transition scan failed: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanLead(row pgx.Row, l *Lead) error {
	return row.Scan(&l.ID, &l.SubscriberID, &l.FirstName, &l.LastName, &l.ProfilePic,
		&l.Locale, &l.Timezone, &l.Gender, &l.Phone, &l.Email, &l.WhatsAppPhone,
		&l.SubscribedAt, &l.LastInteractionAt, &l.Status, &l.HotelName,
		&l.StayConditions, &l.QuotedPrice, &l.RawData, &l.CreatedAt, &l.UpdatedAt)
}
