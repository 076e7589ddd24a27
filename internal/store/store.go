package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"github.com/example/linkedreach/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

type Store struct{ db *sql.DB }

func Open(path string) (*Store, error) {
	// The pragma rides the DSN so every pooled connection enforces
	// foreign keys, not just the first one opened.
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() { _ = s.db.Close() }

func (s *Store) Migrate(ctx context.Context) error {
	stmt := `
CREATE TABLE IF NOT EXISTS campaigns (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	keywords TEXT NOT NULL DEFAULT '',
	geo_urn TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	industry_ids TEXT NOT NULL DEFAULT '',
	industry TEXT NOT NULL DEFAULT '',
	network TEXT NOT NULL DEFAULT '',
	daily_limit INTEGER NOT NULL DEFAULT 20,
	message_template TEXT NOT NULL DEFAULT '',
	active INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME,
	last_run DATETIME,
	total_sent INTEGER NOT NULL DEFAULT 0,
	total_accepted INTEGER NOT NULL DEFAULT 0,
	total_pending INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS contacts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	campaign_id INTEGER NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	profile_url TEXT NOT NULL,
	headline TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	company TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'found',
	connection_sent_at DATETIME,
	connection_accepted_at DATETIME,
	notes TEXT NOT NULL DEFAULT '',
	contact_info TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL,
	updated_at DATETIME,
	UNIQUE(campaign_id, profile_url),
	FOREIGN KEY(campaign_id) REFERENCES campaigns(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_contacts_status ON contacts(campaign_id, status);
CREATE TABLE IF NOT EXISTS analytics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	campaign_id INTEGER NOT NULL,
	date TEXT NOT NULL,
	connections_sent INTEGER NOT NULL DEFAULT 0,
	connections_accepted INTEGER NOT NULL DEFAULT 0,
	connections_declined INTEGER NOT NULL DEFAULT 0,
	response_rate REAL NOT NULL DEFAULT 0,
	acceptance_rate REAL NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME,
	UNIQUE(campaign_id, date),
	FOREIGN KEY(campaign_id) REFERENCES campaigns(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS settings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	key TEXT NOT NULL UNIQUE,
	value TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME
);
`
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

// Campaign operations

func (s *Store) CreateCampaign(ctx context.Context, c *models.Campaign) error {
	if c.DailyLimit <= 0 {
		c.DailyLimit = models.DefaultDailyLimit
	}
	if c.MessageTemplate == "" {
		c.MessageTemplate = models.DefaultMessageTemplate
	}
	if err := c.Validate(); err != nil {
		return err
	}
	c.CreatedAt = time.Now()
	res, err := s.db.ExecContext(ctx, `INSERT INTO campaigns
		(name, description, keywords, geo_urn, location, industry_ids, industry, network,
		 daily_limit, message_template, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.Description, c.Keywords, c.GeoURN, c.Location, c.IndustryIDs, c.Industry,
		c.Network, c.DailyLimit, c.MessageTemplate, c.Active, c.CreatedAt)
	if err != nil {
		return err
	}
	c.ID, _ = res.LastInsertId()
	return nil
}

func (s *Store) GetCampaign(ctx context.Context, id int64) (*models.Campaign, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, description, keywords, geo_urn, location,
		industry_ids, industry, network, daily_limit, message_template, active,
		created_at, updated_at, last_run, total_sent, total_accepted, total_pending
		FROM campaigns WHERE id = ?`, id)
	return scanCampaign(row)
}

func (s *Store) ListCampaigns(ctx context.Context, activeOnly bool) ([]models.Campaign, error) {
	q := `SELECT id, name, description, keywords, geo_urn, location, industry_ids, industry,
		network, daily_limit, message_template, active, created_at, updated_at, last_run,
		total_sent, total_accepted, total_pending FROM campaigns`
	if activeOnly {
		q += ` WHERE active = 1`
	}
	q += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCampaign(ctx context.Context, c *models.Campaign) error {
	if err := c.Validate(); err != nil {
		return err
	}
	now := time.Now()
	c.UpdatedAt = &now
	_, err := s.db.ExecContext(ctx, `UPDATE campaigns SET name=?, description=?, keywords=?,
		geo_urn=?, location=?, industry_ids=?, industry=?, network=?, daily_limit=?,
		message_template=?, active=?, updated_at=? WHERE id=?`,
		c.Name, c.Description, c.Keywords, c.GeoURN, c.Location, c.IndustryIDs, c.Industry,
		c.Network, c.DailyLimit, c.MessageTemplate, c.Active, now, c.ID)
	return err
}

// DeleteCampaign removes a campaign; its contacts and analytics go with it
// via the cascading foreign keys.
func (s *Store) DeleteCampaign(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM campaigns WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) TouchLastRun(ctx context.Context, id int64) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `UPDATE campaigns SET last_run=?, updated_at=? WHERE id=?`, now, now, id)
	return err
}

// RecomputeCampaignStats derives the aggregate counters from the contact
// set. Counters are never incremented in place anywhere else.
func (s *Store) RecomputeCampaignStats(ctx context.Context, id int64) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `UPDATE campaigns SET
		total_sent = (SELECT COUNT(*) FROM contacts WHERE campaign_id = campaigns.id AND status IN ('sent','accepted','declined')),
		total_accepted = (SELECT COUNT(*) FROM contacts WHERE campaign_id = campaigns.id AND status = 'accepted'),
		total_pending = (SELECT COUNT(*) FROM contacts WHERE campaign_id = campaigns.id AND status = 'sent'),
		updated_at = ?
		WHERE id = ?`, now, id)
	return err
}

// Contact operations

func (s *Store) CreateContact(ctx context.Context, c *models.Contact) error {
	if c.Status == "" {
		c.Status = models.StatusFound
	}
	if c.ContactInfo == "" {
		c.ContactInfo = "{}"
	}
	c.CreatedAt = time.Now()
	res, err := s.db.ExecContext(ctx, `INSERT INTO contacts
		(campaign_id, name, profile_url, headline, location, company, status,
		 connection_sent_at, connection_accepted_at, notes, contact_info, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.CampaignID, c.Name, c.ProfileURL, c.Headline, c.Location, c.Company, string(c.Status),
		c.ConnectionSentAt, c.ConnectionAcceptedAt, c.Notes, c.ContactInfo, c.CreatedAt)
	if err != nil {
		return err
	}
	c.ID, _ = res.LastInsertId()
	return nil
}

func (s *Store) GetContact(ctx context.Context, id int64) (*models.Contact, error) {
	row := s.db.QueryRowContext(ctx, contactSelect+` WHERE id = ?`, id)
	return scanContact(row)
}

// GetContactByURL is the de-duplication lookup: at most one contact exists
// per (campaign, canonical profile URL) pair.
func (s *Store) GetContactByURL(ctx context.Context, campaignID int64, profileURL string) (*models.Contact, error) {
	row := s.db.QueryRowContext(ctx, contactSelect+` WHERE campaign_id = ? AND profile_url = ?`,
		campaignID, profileURL)
	return scanContact(row)
}

func (s *Store) GetContacts(ctx context.Context, campaignID int64) ([]models.Contact, error) {
	return s.queryContacts(ctx, contactSelect+` WHERE campaign_id = ? ORDER BY id`, campaignID)
}

func (s *Store) GetContactsByStatus(ctx context.Context, campaignID int64, status models.ContactStatus) ([]models.Contact, error) {
	return s.queryContacts(ctx, contactSelect+` WHERE campaign_id = ? AND status = ? ORDER BY id`,
		campaignID, string(status))
}

// MostRecentAccepted returns the accepted contact with the newest
// acceptance timestamp, used by the bulk checker as its stopping anchor.
func (s *Store) MostRecentAccepted(ctx context.Context, campaignID int64) (*models.Contact, error) {
	row := s.db.QueryRowContext(ctx, contactSelect+` WHERE campaign_id = ? AND status = 'accepted'
		ORDER BY connection_accepted_at DESC LIMIT 1`, campaignID)
	return scanContact(row)
}

// MarkPending records that an invitation for this contact already
// exists on the remote side, sent outside any recorded batch.
func (s *Store) MarkPending(ctx context.Context, id int64) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `UPDATE contacts SET status='pending', updated_at=? WHERE id=?`, now, id)
	return err
}

// MarkSent records a dispatched connection request.
func (s *Store) MarkSent(ctx context.Context, id int64, sentAt time.Time) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `UPDATE contacts SET status='sent', connection_sent_at=?,
		updated_at=? WHERE id=?`, sentAt, now, id)
	return err
}

// MarkAccepted promotes a sent contact to accepted. Acceptance is one-way:
// an already-accepted contact is left untouched.
func (s *Store) MarkAccepted(ctx context.Context, id int64, acceptedAt time.Time, details models.ContactDetails) error {
	var c models.Contact
	c.SetContactInfo(details)
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `UPDATE contacts SET status='accepted',
		connection_accepted_at=?, contact_info=?, updated_at=?
		WHERE id=? AND status='sent'`, acceptedAt, c.ContactInfo, now, id)
	return err
}

func (s *Store) UpdateContactNotes(ctx context.Context, id int64, notes string) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `UPDATE contacts SET notes=?, updated_at=? WHERE id=?`, notes, now, id)
	return err
}

// Analytics operations

// RecordDailyAnalytics upserts one campaign-day row and refreshes its
// acceptance rate.
func (s *Store) RecordDailyAnalytics(ctx context.Context, a *models.Analytics) error {
	now := time.Now()
	rate := 0.0
	if a.ConnectionsSent > 0 {
		rate = float64(a.ConnectionsAccepted) / float64(a.ConnectionsSent) * 100
	}
	a.AcceptanceRate = rate
	_, err := s.db.ExecContext(ctx, `INSERT INTO analytics
		(campaign_id, date, connections_sent, connections_accepted, connections_declined,
		 response_rate, acceptance_rate, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(campaign_id, date) DO UPDATE SET
		connections_sent = connections_sent + excluded.connections_sent,
		connections_accepted = connections_accepted + excluded.connections_accepted,
		connections_declined = connections_declined + excluded.connections_declined,
		acceptance_rate = excluded.acceptance_rate,
		updated_at = ?`,
		a.CampaignID, a.Date, a.ConnectionsSent, a.ConnectionsAccepted, a.ConnectionsDeclined,
		a.ResponseRate, a.AcceptanceRate, now, now)
	return err
}

func (s *Store) GetCampaignAnalytics(ctx context.Context, campaignID int64, days int) ([]models.Analytics, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, campaign_id, date, connections_sent,
		connections_accepted, connections_declined, response_rate, acceptance_rate,
		created_at, updated_at FROM analytics WHERE campaign_id = ?
		ORDER BY date DESC LIMIT ?`, campaignID, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Analytics
	for rows.Next() {
		var a models.Analytics
		if err := rows.Scan(&a.ID, &a.CampaignID, &a.Date, &a.ConnectionsSent,
			&a.ConnectionsAccepted, &a.ConnectionsDeclined, &a.ResponseRate,
			&a.AcceptanceRate, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Settings operations

func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return v, err
}

func (s *Store) SetSetting(ctx context.Context, key, value, description string) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `INSERT INTO settings (key, value, description, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value,
		description=CASE WHEN excluded.description != '' THEN excluded.description ELSE description END,
		updated_at=?`, key, value, description, now, now)
	return err
}

// DashboardStats is the cross-campaign aggregate shown by the stats command.
type DashboardStats struct {
	TotalCampaigns  int
	ActiveCampaigns int
	TotalContacts   int
	TotalSent       int
	TotalAccepted   int
	TotalPending    int
	AcceptanceRate  float64
}

func (s *Store) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	var d DashboardStats
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM campaigns),
		(SELECT COUNT(*) FROM campaigns WHERE active = 1),
		(SELECT COUNT(*) FROM contacts),
		(SELECT COUNT(*) FROM contacts WHERE status IN ('sent','accepted','declined')),
		(SELECT COUNT(*) FROM contacts WHERE status = 'accepted'),
		(SELECT COUNT(*) FROM contacts WHERE status = 'sent')`).Scan(
		&d.TotalCampaigns, &d.ActiveCampaigns, &d.TotalContacts,
		&d.TotalSent, &d.TotalAccepted, &d.TotalPending)
	if err != nil {
		return nil, err
	}
	if d.TotalSent > 0 {
		d.AcceptanceRate = float64(d.TotalAccepted) / float64(d.TotalSent) * 100
	}
	return &d, nil
}

// scanning helpers

const contactSelect = `SELECT id, campaign_id, name, profile_url, headline, location, company,
	status, connection_sent_at, connection_accepted_at, notes, contact_info, created_at, updated_at
	FROM contacts`

type rowScanner interface{ Scan(dest ...any) error }

func scanCampaign(r rowScanner) (*models.Campaign, error) {
	var c models.Campaign
	err := r.Scan(&c.ID, &c.Name, &c.Description, &c.Keywords, &c.GeoURN, &c.Location,
		&c.IndustryIDs, &c.Industry, &c.Network, &c.DailyLimit, &c.MessageTemplate, &c.Active,
		&c.CreatedAt, &c.UpdatedAt, &c.LastRun, &c.TotalSent, &c.TotalAccepted, &c.TotalPending)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanContact(r rowScanner) (*models.Contact, error) {
	var c models.Contact
	var status string
	err := r.Scan(&c.ID, &c.CampaignID, &c.Name, &c.ProfileURL, &c.Headline, &c.Location,
		&c.Company, &status, &c.ConnectionSentAt, &c.ConnectionAcceptedAt, &c.Notes,
		&c.ContactInfo, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Status = models.ContactStatus(status)
	return &c, nil
}

func (s *Store) queryContacts(ctx context.Context, q string, args ...any) ([]models.Contact, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
