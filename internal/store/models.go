package store

import "time"

// Roles of a transcript turn. The values double as Gemini content roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Lead statuses and sources as known to the CRM.
const (
	LeadStatusNew         = "New"
	LeadStatusContacted   = "Contacted"
	LeadStatusQualified   = "Qualified"
	LeadStatusSiteVisit   = "Site Visit"
	LeadStatusNegotiation = "Negotiation"
	LeadStatusClosed      = "Closed"
	LeadStatusLost        = "Lost"

	LeadSourceChat  = "aspadaChat"
	LeadSourceForms = "aspadaForms"
)

// Project statuses.
const (
	ProjectStatusUpcoming  = "upcoming"
	ProjectStatusOngoing   = "ongoing"
	ProjectStatusCompleted = "completed"
)

// CacheEntry is one answered question. Question holds the normalized text
// (trimmed, lowercased); it is not unique.
type CacheEntry struct {
	ID             string    `json:"id"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	Embedding      []float32 `json:"-"` // nil when the entry was stored without one
	HelpfulCount   int64     `json:"helpfulCount"`
	UnhelpfulCount int64     `json:"unhelpfulCount"`
	HitCount       int64     `json:"hitCount"`
	IsSemantic     bool      `json:"isSemantic"`
	CreatedAt      time.Time `json:"createdAt"`
}

type TranscriptTurn struct {
	ID        string            `json:"id"`
	SessionID string            `json:"sessionId"`
	Role      string            `json:"role"` // "user" or "model"
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

type Lead struct {
	ID           string    `json:"id"`
	FullName     string    `json:"fullName,omitempty"`
	ContactEmail string    `json:"contactEmail,omitempty"`
	ContactNo    string    `json:"contactNo"`
	Status       string    `json:"status"`
	Interest     string    `json:"interest"`
	Source       string    `json:"source"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Project is a listing shown on the site. The assistant only reads them.
type Project struct {
	ID           string    `json:"id" yaml:"id"`
	Title        string    `json:"title" yaml:"title"`
	Category     string    `json:"category" yaml:"category"`
	Status       string    `json:"status" yaml:"status"`
	AddressLine1 string    `json:"addressLine1" yaml:"addressLine1"`
	City         string    `json:"city" yaml:"city"`
	District     string    `json:"district" yaml:"district"`
	State        string    `json:"state" yaml:"state"`
	Pincode      string    `json:"pincode" yaml:"pincode"`
	Description  string    `json:"description" yaml:"description"`
	CreatedAt    time.Time `json:"createdAt" yaml:"-"`
}
