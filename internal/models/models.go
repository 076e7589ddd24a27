package models

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
)

// ContactStatus tracks where a contact sits in the connection lifecycle.
// Non-success terminal outcomes are recorded as StatusFound with an
// explanatory note rather than a dedicated failure status.
type ContactStatus string

const (
	StatusFound    ContactStatus = "found"
	StatusSent     ContactStatus = "sent"
	StatusPending  ContactStatus = "pending"
	StatusAccepted ContactStatus = "accepted"
	StatusDeclined ContactStatus = "declined"
)

// CountsAsSent reports whether a status counts toward a campaign's
// total_sent aggregate.
func (s ContactStatus) CountsAsSent() bool {
	return s == StatusSent || s == StatusAccepted || s == StatusDeclined
}

// Campaign is a saved targeting and policy configuration. The Total*
// counters are derived from the contact set by Store.RecomputeCampaignStats
// and must never be maintained by hand.
type Campaign struct {
	ID          int64
	Name        string `validate:"required"`
	Description string

	// Targeting criteria. GeoURN and IndustryIDs supersede the legacy
	// free-text Location/Industry fields, which remain as fallbacks for
	// campaigns created before the mapping tables existed.
	Keywords    string
	GeoURN      string
	Location    string
	IndustryIDs string
	Industry    string
	Network     string

	DailyLimit      int    `validate:"gt=0"`
	MessageTemplate string `validate:"omitempty,contains={name}"`
	Active          bool

	CreatedAt time.Time
	UpdatedAt *time.Time
	LastRun   *time.Time

	TotalSent     int
	TotalAccepted int
	TotalPending  int
}

const (
	DefaultDailyLimit      = 20
	DefaultMessageTemplate = "Hi {name}, I'd like to connect with you!"
	DefaultNetwork         = `["F","S"]`
)

var validate = validator.New()

// Validate checks the campaign's structural constraints. A non-empty
// message template must carry the {name} placeholder.
func (c *Campaign) Validate() error {
	return validate.Struct(c)
}

// EffectiveGeoURN returns the geo code to search with, falling back to the
// legacy plain-text location field.
func (c *Campaign) EffectiveGeoURN() string {
	if c.GeoURN != "" {
		return c.GeoURN
	}
	return c.Location
}

// EffectiveIndustryIDs returns the comma-separated industry IDs, falling
// back to the legacy industry field.
func (c *Campaign) EffectiveIndustryIDs() string {
	if c.IndustryIDs != "" {
		return c.IndustryIDs
	}
	return c.Industry
}

// EffectiveNetwork returns the network-degree filter, defaulting to
// 1st + 2nd degree connections.
func (c *Campaign) EffectiveNetwork() string {
	if c.Network != "" {
		return c.Network
	}
	return DefaultNetwork
}

// Contact is one candidate discovered under a campaign. ProfileURL is the
// de-duplication key: the engine never processes the same URL twice.
type Contact struct {
	ID         int64
	CampaignID int64

	Name       string
	ProfileURL string
	Headline   string
	Location   string
	Company    string

	Status               ContactStatus
	ConnectionSentAt     *time.Time
	ConnectionAcceptedAt *time.Time

	Notes       string
	ContactInfo string

	CreatedAt time.Time
	UpdatedAt *time.Time
}

// ContactDetails is the auxiliary data captured once a connection is
// accepted, stored serialized in Contact.ContactInfo.
type ContactDetails struct {
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// GetContactInfo parses the stored contact-info blob. Malformed or empty
// text yields an empty map, never an error.
func (c *Contact) GetContactInfo() map[string]string {
	out := map[string]string{}
	if c.ContactInfo == "" {
		return out
	}
	if err := json.Unmarshal([]byte(c.ContactInfo), &out); err != nil {
		return map[string]string{}
	}
	return out
}

// SetContactInfo serializes details into the contact-info blob. Zero-value
// details produce the empty-object string.
func (c *Contact) SetContactInfo(d ContactDetails) {
	b, err := json.Marshal(d)
	if err != nil {
		c.ContactInfo = "{}"
		return
	}
	c.ContactInfo = string(b)
}

// Analytics holds one campaign's per-day counters. Date is YYYY-MM-DD.
type Analytics struct {
	ID         int64
	CampaignID int64
	Date       string

	ConnectionsSent     int
	ConnectionsAccepted int
	ConnectionsDeclined int

	ResponseRate   float64
	AcceptanceRate float64

	CreatedAt time.Time
	UpdatedAt *time.Time
}

// Setting is one key/value row of app configuration stored alongside the
// campaign data.
type Setting struct {
	ID          int64
	Key         string
	Value       string
	Description string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// Profile is a candidate extracted from a search listing. Best-effort
// fields may be empty; ProfileURL is always canonical.
type Profile struct {
	Name       string
	ProfileURL string
	Headline   string
	Location   string
	Company    string
}

// RunSummary is the ephemeral result of one connection-request batch.
type RunSummary struct {
	Sent           int
	Failed         int
	Existing       int
	TotalProcessed int
}

// CheckResult is the ephemeral result of one status-checker invocation.
type CheckResult struct {
	Checked       int
	NewlyAccepted int
	Updated       int
}

// MonitorResult aggregates checker results across monitor iterations.
type MonitorResult struct {
	Iterations         int
	TotalChecked       int
	TotalNewlyAccepted int
	CampaignsMonitored int
}
