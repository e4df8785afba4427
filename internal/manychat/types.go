package manychat

import "strconv"

// Subscriber is one record from the ManyChat subscriber directory. Fields
// mirror the upstream payload verbatim; anything absent arrives empty.
type Subscriber struct {
	ID                string        `json:"id"`
	FirstName         string        `json:"first_name"`
	LastName          string        `json:"last_name"`
	ProfilePic        string        `json:"profile_pic"`
	Locale            string        `json:"locale"`
	Timezone          string        `json:"timezone"`
	Gender            string        `json:"gender"`
	Phone             string        `json:"phone"`
	Email             string        `json:"email"`
	WhatsAppPhone     string        `json:"whatsapp_phone"`
	SubscribedAt      string        `json:"subscribed_at"`
	LastInteractionAt string        `json:"last_interaction_at"`
	CustomFields      []CustomField `json:"custom_fields"`
}

// CustomField is a named ManyChat custom attribute.
type CustomField struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// CustomField looks up a custom field value by attribute name and returns
// its string form, or "" when the field is absent or empty.
func (s Subscriber) CustomField(name string) string {
	for _, f := range s.CustomFields {
		if f.Name != name {
			continue
		}
		switch v := f.Value.(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return ""
		}
	}
	return ""
}

type findResponse struct {
	Status string       `json:"status"`
	Data   []Subscriber `json:"data"`
}
