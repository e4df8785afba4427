package leads

import "time"

// Lead is one external subscriber of interest to the call center. Profile
// and promotion fields come verbatim from the source record; Status is owned
// exclusively by the ledger.
type Lead struct {
	ID                int64      `json:"id"`
	SubscriberID      string     `json:"subscriber_id"`
	FirstName         string     `json:"first_name,omitempty"`
	LastName          string     `json:"last_name,omitempty"`
	ProfilePic        string     `json:"profile_pic,omitempty"`
	Locale            string     `json:"locale,omitempty"`
	Timezone          string     `json:"timezone,omitempty"`
	Gender            string     `json:"gender,omitempty"`
	Phone             string     `json:"phone,omitempty"`
	Email             string     `json:"email,omitempty"`
	WhatsAppPhone     string     `json:"whatsapp_phone,omitempty"`
	SubscribedAt      *time.Time `json:"subscribed_at,omitempty"`
	LastInteractionAt *time.Time `json:"last_interaction_at,omitempty"`
	Status            string     `json:"status"`
	HotelName         string     `json:"hotel_name,omitempty"`
	StayConditions    string     `json:"stay_conditions,omitempty"`
	QuotedPrice       string     `json:"quoted_price,omitempty"`
	RawData           []byte     `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// StatusTransition is one immutable audit record of an operator changing a
// lead's status. OldStatus is nil only for a lead's first transition.
type StatusTransition struct {
	ID        int64     `json:"id"`
	LeadID    int64     `json:"lead_id"`
	UserID    int64     `json:"user_id"`
	OldStatus *string   `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ChangedAt time.Time `json:"changed_at"`
}

// TransitionLogEntry is a transition joined with operator and lead names for
// the recent-history view.
type TransitionLogEntry struct {
	ID        int64     `json:"id"`
	LeadID    int64     `json:"lead_id"`
	LeadName  string    `json:"lead_name"`
	Operator  string    `json:"operator"`
	OldStatus *string   `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ChangedAt time.Time `json:"changed_at"`
}
