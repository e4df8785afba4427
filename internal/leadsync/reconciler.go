package leadsync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wolfman30/leadcenter/internal/leads"
	"github.com/wolfman30/leadcenter/internal/manychat"
	"github.com/wolfman30/leadcenter/pkg/logging"
)

// Custom field names carrying the promotion attributes on the external
// record.
const (
	fieldHotelName      = "otel_adi"
	fieldStayConditions = "conditions"
	fieldQuotedPrice    = "cevap_fiyat1"
)

// LeadStore is the storage surface the reconciler writes through.
type LeadStore interface {
	UpsertFromSource(ctx context.Context, l *leads.Lead, initialStatus string) (bool, error)
}

// Result counts one reconciliation batch. Only records that completed
// successfully are counted as inserted or updated.
type Result struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Failed   int `json:"failed"`
}

// Reconciler merges external subscriber records into local storage,
// insert-or-update by subscriber id.
type Reconciler struct {
	store  LeadStore
	vocab  leads.Vocabulary
	logger *logging.Logger
}

// NewReconciler creates a reconciler writing through store.
func NewReconciler(store LeadStore, vocab leads.Vocabulary, logger *logging.Logger) *Reconciler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Reconciler{store: store, vocab: vocab, logger: logger}
}

// Reconcile upserts every record in the batch. Per-record failures are
// logged and skipped; the batch always runs to the end.
func (r *Reconciler) Reconcile(ctx context.Context, subs []manychat.Subscriber) Result {
	var res Result
	for _, sub := range subs {
		lead, err := mapSubscriber(sub)
		if err != nil {
			r.logger.Warn("skipping malformed subscriber record", "subscriber_id", sub.ID, "error", err)
			res.Failed++
			continue
		}
		inserted, err := r.store.UpsertFromSource(ctx, lead, r.vocab.Initial())
		if err != nil {
			r.logger.Warn("lead upsert failed", "subscriber_id", sub.ID, "error", err)
			res.Failed++
			continue
		}
		if inserted {
			res.Inserted++
		} else {
			res.Updated++
		}
	}
	return res
}

// mapSubscriber converts an external record into a lead. Direct profile
// fields map 1:1; promotion attributes come from named custom fields; the
// full record is retained as the raw snapshot.
func mapSubscriber(sub manychat.Subscriber) (*leads.Lead, error) {
	if sub.ID == "" {
		return nil, fmt.Errorf("leadsync: record has no subscriber id")
	}
	raw, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("leadsync: serialize record: %w", err)
	}
	return &leads.Lead{
		SubscriberID:      sub.ID,
		FirstName:         sub.FirstName,
		LastName:          sub.LastName,
		ProfilePic:        sub.ProfilePic,
		Locale:            sub.Locale,
		Timezone:          sub.Timezone,
		Gender:            sub.Gender,
		Phone:             sub.Phone,
		Email:             sub.Email,
		WhatsAppPhone:     sub.WhatsAppPhone,
		SubscribedAt:      parseSourceTime(sub.SubscribedAt),
		LastInteractionAt: parseSourceTime(sub.LastInteractionAt),
		HotelName:         sub.CustomField(fieldHotelName),
		StayConditions:    sub.CustomField(fieldStayConditions),
		QuotedPrice:       sub.CustomField(fieldQuotedPrice),
		RawData:           raw,
	}, nil
}

// parseSourceTime accepts the timestamp shapes ManyChat emits; anything
// unparseable is treated as absent.
func parseSourceTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-0700", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
