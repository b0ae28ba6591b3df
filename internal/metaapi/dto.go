package metaapi

// TokenResponse is returned by the OAuth token exchange endpoints.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Page describes one page from the accounts listing, including the page-scoped
// access token used for lead retrieval and conversion submission.
type Page struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
}

type pageListResponse struct {
	Data []Page `json:"data"`
}

// LeadField is one captured form field with its raw values.
type LeadField struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// LeadData is the full detail record for one form submission.
type LeadData struct {
	ID          string      `json:"id"`
	CreatedTime string      `json:"created_time"`
	AdID        string      `json:"ad_id"`
	FormID      string      `json:"form_id"`
	FieldData   []LeadField `json:"field_data"`
}

type formResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserData is the hashed user identification block of a conversion event.
// Email and phone carry SHA-256 digests, never raw values.
type UserData struct {
	Emails []string `json:"em,omitempty"`
	Phones []string `json:"ph,omitempty"`
	LeadID string   `json:"lead_id,omitempty"`
}

// CustomData tags the qualification outcome and originating system.
type CustomData struct {
	LeadEventSource     string `json:"lead_event_source"`
	QualificationStatus string `json:"qualification_status"`
}

// ConversionEvent is the wire format for one server-side conversion event.
type ConversionEvent struct {
	EventName    string     `json:"event_name"`
	EventTime    int64      `json:"event_time"`
	ActionSource string     `json:"action_source"`
	UserData     UserData   `json:"user_data"`
	CustomData   CustomData `json:"custom_data"`
}

type conversionRequest struct {
	Data []ConversionEvent `json:"data"`
}

// ConversionResponse reports how many events the platform accepted.
type ConversionResponse struct {
	EventsReceived int    `json:"events_received"`
	FBTraceID      string `json:"fbtrace_id"`
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}
