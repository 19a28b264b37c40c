package claims

// TaskStatus mirrors the status object on a raw task.
type TaskStatus struct {
	Status string `json:"status"`
	Color  string `json:"color"`
}

// RawCustomField is one arbitrarily-typed custom field on a raw task. Value
// is whatever shape the upstream system attached.
type RawCustomField struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	Value          any    `json:"value"`
	HideFromGuests bool   `json:"hide_from_guests"`
}

// RawTask is the subset of an upstream task record the normalizer consumes.
type RawTask struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Status       TaskStatus       `json:"status"`
	Description  string           `json:"description"`
	CustomFields []RawCustomField `json:"custom_fields"`
	Attachments  []map[string]any `json:"attachments"`
}

// Field is one normalized custom field on a snapshot.
type Field struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
	Type  string `json:"type"`
}

// ClaimSnapshot is the stable internal representation of a claim, derived
// fresh from one raw task on every fetch and never persisted.
type ClaimSnapshot struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Status      TaskStatus       `json:"status"`
	Description string           `json:"description"`
	Fields      []Field          `json:"custom_fields"`
	Attachments []map[string]any `json:"attachments"`
	Comments    []map[string]any `json:"comments"`
}
