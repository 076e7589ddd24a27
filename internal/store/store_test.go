package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/linkedreach/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(s.Close)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func seedCampaign(t *testing.T, s *Store) *models.Campaign {
	t.Helper()
	c := &models.Campaign{Name: "test campaign", Keywords: "golang", Active: true}
	if err := s.CreateCampaign(context.Background(), c); err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	return c
}

func seedContact(t *testing.T, s *Store, campaignID int64, url string) *models.Contact {
	t.Helper()
	c := &models.Contact{CampaignID: campaignID, Name: "Jane Doe", ProfileURL: url}
	if err := s.CreateContact(context.Background(), c); err != nil {
		t.Fatalf("create contact: %v", err)
	}
	return c
}

func TestCreateCampaignDefaults(t *testing.T) {
	s := testStore(t)
	c := seedCampaign(t, s)

	if c.DailyLimit != models.DefaultDailyLimit {
		t.Errorf("DailyLimit = %d, want default %d", c.DailyLimit, models.DefaultDailyLimit)
	}
	if c.MessageTemplate != models.DefaultMessageTemplate {
		t.Errorf("MessageTemplate = %q", c.MessageTemplate)
	}

	got, err := s.GetCampaign(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if got.Name != "test campaign" || got.Keywords != "golang" {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestGetCampaignNotFound(t *testing.T) {
	s := testStore(t)
	if _, err := s.GetCampaign(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
	if err := s.DeleteCampaign(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete: want ErrNotFound, got %v", err)
	}
}

func TestContactDeduplication(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	c := seedCampaign(t, s)

	url := "https://www.linkedin.com/in/jane-doe/"
	seedContact(t, s, c.ID, url)

	dup := &models.Contact{CampaignID: c.ID, Name: "Jane Doe", ProfileURL: url}
	if err := s.CreateContact(ctx, dup); err == nil {
		t.Fatal("duplicate profile URL within a campaign must be rejected")
	}

	// Same URL under a different campaign is fine.
	other := seedCampaign(t, s)
	cross := &models.Contact{CampaignID: other.ID, ProfileURL: url}
	if err := s.CreateContact(ctx, cross); err != nil {
		t.Fatalf("same URL in other campaign should insert: %v", err)
	}

	got, err := s.GetContactByURL(ctx, c.ID, url)
	if err != nil {
		t.Fatalf("lookup by URL: %v", err)
	}
	if got.CampaignID != c.ID {
		t.Errorf("lookup crossed campaigns: %+v", got)
	}
}

func TestMarkSentAndAccepted(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	c := seedCampaign(t, s)
	ct := seedContact(t, s, c.ID, "https://www.linkedin.com/in/jane-doe/")

	if err := s.MarkSent(ctx, ct.ID, time.Now()); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	got, _ := s.GetContact(ctx, ct.ID)
	if got.Status != models.StatusSent || got.ConnectionSentAt == nil {
		t.Fatalf("after MarkSent: %+v", got)
	}

	details := models.ContactDetails{Email: "jane@example.com"}
	if err := s.MarkAccepted(ctx, ct.ID, time.Now(), details); err != nil {
		t.Fatalf("mark accepted: %v", err)
	}
	got, _ = s.GetContact(ctx, ct.ID)
	if got.Status != models.StatusAccepted || got.ConnectionAcceptedAt == nil {
		t.Fatalf("after MarkAccepted: %+v", got)
	}
	if got.GetContactInfo()["email"] != "jane@example.com" {
		t.Errorf("contact info not stored: %q", got.ContactInfo)
	}

	// Acceptance is one-way: repeating must not clobber the record.
	firstAccepted := *got.ConnectionAcceptedAt
	if err := s.MarkAccepted(ctx, ct.ID, time.Now().Add(time.Hour), models.ContactDetails{}); err != nil {
		t.Fatalf("repeat mark accepted: %v", err)
	}
	got, _ = s.GetContact(ctx, ct.ID)
	if !got.ConnectionAcceptedAt.Equal(firstAccepted) {
		t.Error("second MarkAccepted overwrote the acceptance timestamp")
	}
	if got.GetContactInfo()["email"] != "jane@example.com" {
		t.Error("second MarkAccepted clobbered contact info")
	}
}

func TestRecomputeCampaignStats(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	c := seedCampaign(t, s)

	urls := []string{"/in/a/", "/in/b/", "/in/c/", "/in/d/"}
	var ids []int64
	for _, u := range urls {
		ids = append(ids, seedContact(t, s, c.ID, "https://www.linkedin.com"+u).ID)
	}

	// a: found, b: sent, c: sent then accepted, d: sent.
	for _, id := range ids[1:] {
		if err := s.MarkSent(ctx, id, time.Now()); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.MarkAccepted(ctx, ids[2], time.Now(), models.ContactDetails{}); err != nil {
		t.Fatal(err)
	}

	if err := s.RecomputeCampaignStats(ctx, c.ID); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	got, _ := s.GetCampaign(ctx, c.ID)
	if got.TotalSent != 3 {
		t.Errorf("TotalSent = %d, want 3", got.TotalSent)
	}
	if got.TotalAccepted != 1 {
		t.Errorf("TotalAccepted = %d, want 1", got.TotalAccepted)
	}
	if got.TotalPending != 2 {
		t.Errorf("TotalPending = %d, want 2", got.TotalPending)
	}
	if got.TotalSent != got.TotalAccepted+got.TotalPending {
		t.Errorf("sent (%d) != accepted (%d) + pending (%d)", got.TotalSent, got.TotalAccepted, got.TotalPending)
	}
}

func TestMostRecentAccepted(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	c := seedCampaign(t, s)

	if _, err := s.MostRecentAccepted(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty campaign: want ErrNotFound, got %v", err)
	}

	older := seedContact(t, s, c.ID, "https://www.linkedin.com/in/older/")
	newer := seedContact(t, s, c.ID, "https://www.linkedin.com/in/newer/")
	now := time.Now()
	for _, ct := range []*models.Contact{older, newer} {
		if err := s.MarkSent(ctx, ct.ID, now.Add(-2*time.Hour)); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.MarkAccepted(ctx, older.ID, now.Add(-time.Hour), models.ContactDetails{}); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkAccepted(ctx, newer.ID, now, models.ContactDetails{}); err != nil {
		t.Fatal(err)
	}

	got, err := s.MostRecentAccepted(ctx, c.ID)
	if err != nil {
		t.Fatalf("most recent accepted: %v", err)
	}
	if got.ID != newer.ID {
		t.Errorf("anchor = contact %d, want %d", got.ID, newer.ID)
	}
}

func TestDeleteCampaignCascades(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	c := seedCampaign(t, s)
	ct := seedContact(t, s, c.ID, "https://www.linkedin.com/in/jane-doe/")
	if err := s.RecordDailyAnalytics(ctx, &models.Analytics{CampaignID: c.ID, Date: "2026-08-24", ConnectionsSent: 1}); err != nil {
		t.Fatal(err)
	}

	// Force every statement onto a fresh pooled connection; the
	// foreign-key pragma must hold on all of them, not just the first.
	s.db.SetMaxIdleConns(0)

	if err := s.DeleteCampaign(ctx, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetContact(ctx, ct.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("contact should cascade away, got %v", err)
	}
	rows, err := s.GetCampaignAnalytics(ctx, c.ID, 7)
	if err != nil {
		t.Fatalf("get analytics: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("analytics should cascade away, got %d rows", len(rows))
	}
}

func TestMarkPending(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	c := seedCampaign(t, s)
	ct := seedContact(t, s, c.ID, "https://www.linkedin.com/in/jane-doe/")

	if err := s.MarkPending(ctx, ct.ID); err != nil {
		t.Fatalf("mark pending: %v", err)
	}
	got, _ := s.GetContact(ctx, ct.ID)
	if got.Status != models.StatusPending {
		t.Errorf("status = %s, want %s", got.Status, models.StatusPending)
	}
	if got.ConnectionSentAt != nil {
		t.Error("pending outside a batch must not fabricate a sent timestamp")
	}
}

func TestDailyAnalyticsUpsert(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	c := seedCampaign(t, s)

	day := "2026-08-24"
	if err := s.RecordDailyAnalytics(ctx, &models.Analytics{CampaignID: c.ID, Date: day, ConnectionsSent: 5}); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if err := s.RecordDailyAnalytics(ctx, &models.Analytics{CampaignID: c.ID, Date: day, ConnectionsSent: 3, ConnectionsAccepted: 2}); err != nil {
		t.Fatalf("second record: %v", err)
	}

	rows, err := s.GetCampaignAnalytics(ctx, c.ID, 7)
	if err != nil {
		t.Fatalf("get analytics: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("want one row per day, got %d", len(rows))
	}
	if rows[0].ConnectionsSent != 8 || rows[0].ConnectionsAccepted != 2 {
		t.Errorf("counters not additive: %+v", rows[0])
	}
}

func TestSettings(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.GetSetting(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
	if err := s.SetSetting(ctx, "theme", "dark", "UI theme"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.SetSetting(ctx, "theme", "light", ""); err != nil {
		t.Fatalf("update: %v", err)
	}
	v, err := s.GetSetting(ctx, "theme")
	if err != nil || v != "light" {
		t.Errorf("GetSetting = %q, %v", v, err)
	}
}

func TestDashboardStats(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	c := seedCampaign(t, s)
	ct := seedContact(t, s, c.ID, "https://www.linkedin.com/in/jane-doe/")
	if err := s.MarkSent(ctx, ct.ID, time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkAccepted(ctx, ct.ID, time.Now(), models.ContactDetails{}); err != nil {
		t.Fatal(err)
	}

	d, err := s.GetDashboardStats(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.TotalCampaigns != 1 || d.ActiveCampaigns != 1 || d.TotalContacts != 1 {
		t.Errorf("counts: %+v", d)
	}
	if d.TotalSent != 1 || d.TotalAccepted != 1 || d.AcceptanceRate != 100 {
		t.Errorf("rates: %+v", d)
	}
}
