// Package checker reconciles dispatched connection requests with the
// account's actual connection list. The smart path walks the
// connections listing newest-first and stops at the most recently known
// acceptance; the direct path visits each pending profile one by one.
package checker

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-rod/rod"

	"github.com/example/linkedreach/internal/auth"
	"github.com/example/linkedreach/internal/config"
	"github.com/example/linkedreach/internal/logging"
	"github.com/example/linkedreach/internal/models"
	"github.com/example/linkedreach/internal/progress"
	"github.com/example/linkedreach/internal/scrape"
	"github.com/example/linkedreach/internal/search"
	"github.com/example/linkedreach/internal/stealth"
	"github.com/example/linkedreach/internal/store"
)

const connectionsPath = "/mynetwork/invite-connect/connections/"

// endOfListThreshold is the entry count below which a scroll round is
// taken to mean the listing is exhausted.
const endOfListThreshold = 10

var connectionEntrySelectors = []string{
	`[data-view-name='connections-list'] a[href*='/in/']`,
	`[data-view-name='connections-profile'] a[href*='/in/']`,
	`.mn-connection-card__link`,
}

type Checker struct {
	st    *store.Store
	cfg   *config.Config
	pacer stealth.Pacer
	log   *logging.Logger
}

func New(st *store.Store, cfg *config.Config, pacer stealth.Pacer) *Checker {
	return &Checker{st: st, cfg: cfg, pacer: pacer, log: logging.Module(cfg.Logging.Level, "checker")}
}

// CleanProfileURL canonicalizes a connection-list href to the same form
// the contact store keys on.
func CleanProfileURL(raw, baseURL string) string {
	return search.NormalizeProfileURL(raw, baseURL)
}

// SmartCheck scans the connections listing for pending contacts that
// have accepted. The most recently accepted contact serves as the
// anchor: entries past it were already reconciled on an earlier run, so
// the scan stops there. Marking acceptance is one-way and idempotent.
func (c *Checker) SmartCheck(ctx context.Context, sess *auth.Session, campaignID int64, report progress.Func) (models.CheckResult, error) {
	var result models.CheckResult
	if sess == nil {
		return result, auth.ErrNotAuthenticated
	}

	pending, err := c.st.GetContactsByStatus(ctx, campaignID, models.StatusSent)
	if err != nil {
		return result, fmt.Errorf("load pending contacts: %w", err)
	}
	if len(pending) == 0 {
		progress.Notify(report, "No pending requests to check.")
		return result, nil
	}
	result.Checked = len(pending)

	pendingByURL := make(map[string]models.Contact, len(pending))
	for _, ct := range pending {
		pendingByURL[ct.ProfileURL] = ct
	}

	anchorURL := ""
	if anchor, aerr := c.st.MostRecentAccepted(ctx, campaignID); aerr == nil {
		anchorURL = anchor.ProfileURL
	} else if !errors.Is(aerr, store.ErrNotFound) {
		return result, fmt.Errorf("load anchor: %w", aerr)
	}

	p := sess.Page()
	if err := c.pacer.Action(ctx); err != nil {
		return result, err
	}
	if err := p.Navigate(sess.BaseURL() + connectionsPath); err != nil {
		return result, fmt.Errorf("navigate connections: %w", err)
	}
	_ = p.WaitLoad()
	stealth.ThinkTime()

	progress.Notify(report, "Checking %d pending requests against the connections list...", len(pending))

	seen := map[string]bool{}
	rounds := 4 + rand.Intn(3)
	for round := 0; round < rounds; round++ {
		entries := c.collectEntries(p, sess.BaseURL())

		newOnRound := 0
		anchorHit := false
		for _, url := range entries {
			if seen[url] {
				continue
			}
			seen[url] = true
			newOnRound++

			if anchorURL != "" && url == anchorURL {
				anchorHit = true
				break
			}
			ct, ok := pendingByURL[url]
			if !ok {
				continue
			}
			if err := c.acceptContact(ctx, sess, ct); err != nil {
				c.log.Warn("mark accepted failed", "contact", ct.ID, "err", err)
				continue
			}
			result.NewlyAccepted++
			result.Updated++
			progress.Notify(report, "%s accepted your request!", ct.Name)
		}

		if anchorHit {
			c.log.Debug("anchor reached, stopping scan")
			break
		}
		if len(entries) < endOfListThreshold || newOnRound == 0 {
			break
		}

		stealth.ScrollBurst(p)
	}

	if result.NewlyAccepted > 0 {
		if err := c.st.RecomputeCampaignStats(ctx, campaignID); err != nil {
			c.log.Warn("recompute stats failed", "campaign", campaignID, "err", err)
		}
		c.recordAcceptances(ctx, campaignID, result.NewlyAccepted)
	}

	progress.Notify(report, "Check complete: %d newly accepted of %d pending", result.NewlyAccepted, result.Checked)
	return result, nil
}

// DirectCheck visits each pending contact's profile and looks for the
// 1st-degree indicators. Slower and noisier than SmartCheck; useful for
// small pending sets or when the listing markup misbehaves.
func (c *Checker) DirectCheck(ctx context.Context, sess *auth.Session, campaignID int64, report progress.Func) (models.CheckResult, error) {
	var result models.CheckResult
	if sess == nil {
		return result, auth.ErrNotAuthenticated
	}

	pending, err := c.st.GetContactsByStatus(ctx, campaignID, models.StatusSent)
	if err != nil {
		return result, fmt.Errorf("load pending contacts: %w", err)
	}
	if len(pending) == 0 {
		progress.Notify(report, "No pending requests to check.")
		return result, nil
	}

	p := sess.Page()
	for _, ct := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Checked++

		if err := c.pacer.Action(ctx); err != nil {
			return result, err
		}
		if err := p.Navigate(ct.ProfileURL); err != nil {
			c.log.Warn("profile visit failed", "contact", ct.ID, "err", err)
			continue
		}
		_ = p.WaitLoad()
		stealth.ThinkTime()

		if !scrape.IsConnected(p) {
			continue
		}
		details := scrape.ContactInfo(p)
		if err := c.st.MarkAccepted(ctx, ct.ID, time.Now(), details); err != nil {
			c.log.Warn("mark accepted failed", "contact", ct.ID, "err", err)
			continue
		}
		result.NewlyAccepted++
		result.Updated++
		progress.Notify(report, "%s accepted your request!", ct.Name)

		c.pacer.Sleep(c.cfg.Delays.ConnectionMinMs, c.cfg.Delays.ConnectionMaxMs)
	}

	if result.NewlyAccepted > 0 {
		if err := c.st.RecomputeCampaignStats(ctx, campaignID); err != nil {
			c.log.Warn("recompute stats failed", "campaign", campaignID, "err", err)
		}
		c.recordAcceptances(ctx, campaignID, result.NewlyAccepted)
	}

	progress.Notify(report, "Check complete: %d newly accepted of %d pending", result.NewlyAccepted, result.Checked)
	return result, nil
}

// Monitor runs SmartCheck over the given campaigns on an interval. It
// stops after maxIterations, when the context ends, or once an
// iteration finds nothing left to check.
func (c *Checker) Monitor(ctx context.Context, sess *auth.Session, campaignIDs []int64, interval time.Duration, maxIterations int, report progress.Func) (models.MonitorResult, error) {
	result := models.MonitorResult{CampaignsMonitored: len(campaignIDs)}
	if sess == nil {
		return result, auth.ErrNotAuthenticated
	}
	if maxIterations <= 0 {
		maxIterations = c.cfg.Checker.MaxIterations
	}
	if interval <= 0 {
		interval = time.Duration(c.cfg.Checker.IntervalMinutes) * time.Minute
	}

	for i := 0; i < maxIterations; i++ {
		result.Iterations++
		progress.Notify(report, "Monitor iteration %d/%d", i+1, maxIterations)

		checked := 0
		for _, id := range campaignIDs {
			r, err := c.SmartCheck(ctx, sess, id, report)
			if err != nil {
				c.log.Warn("monitor check failed", "campaign", id, "err", err)
				continue
			}
			checked += r.Checked
			result.TotalChecked += r.Checked
			result.TotalNewlyAccepted += r.NewlyAccepted
		}

		if checked == 0 {
			progress.Notify(report, "Nothing left to monitor, stopping.")
			break
		}
		if i == maxIterations-1 {
			break
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(interval):
		}
	}
	return result, nil
}

// acceptContact marks a contact accepted and enriches it with contact
// details scraped from a side page, so the primary page keeps its place
// in the connections listing.
func (c *Checker) acceptContact(ctx context.Context, sess *auth.Session, ct models.Contact) error {
	var details models.ContactDetails
	if aux, err := sess.NewAuxPage(ctx); err == nil {
		if nerr := aux.Navigate(ct.ProfileURL); nerr == nil {
			_ = aux.WaitLoad()
			details = scrape.ContactInfo(aux)
		}
		_ = aux.Close()
	}
	return c.st.MarkAccepted(ctx, ct.ID, time.Now(), details)
}

func (c *Checker) collectEntries(p *rod.Page, baseURL string) []string {
	for _, sel := range connectionEntrySelectors {
		els, err := p.Elements(sel)
		if err != nil || len(els) == 0 {
			continue
		}
		var out []string
		dedup := map[string]bool{}
		for _, el := range els {
			href, herr := el.Attribute("href")
			if herr != nil || href == nil {
				continue
			}
			url := CleanProfileURL(*href, baseURL)
			if url == "" || dedup[url] {
				continue
			}
			dedup[url] = true
			out = append(out, url)
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func (c *Checker) recordAcceptances(ctx context.Context, campaignID int64, accepted int) {
	a := models.Analytics{
		CampaignID:          campaignID,
		Date:                time.Now().Format("2006-01-02"),
		ConnectionsAccepted: accepted,
	}
	if err := c.st.RecordDailyAnalytics(ctx, &a); err != nil {
		c.log.Warn("record analytics failed", "campaign", campaignID, "err", err)
	}
}

