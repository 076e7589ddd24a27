// Package connect sends connection requests for a campaign: one
// candidate at a time, de-duplicated against the contact store, paced by
// the injected delay policy, and hard-stopped the moment the weekly
// invitation wall appears.
package connect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/example/linkedreach/internal/auth"
	"github.com/example/linkedreach/internal/browser"
	"github.com/example/linkedreach/internal/config"
	"github.com/example/linkedreach/internal/logging"
	"github.com/example/linkedreach/internal/models"
	"github.com/example/linkedreach/internal/progress"
	"github.com/example/linkedreach/internal/search"
	"github.com/example/linkedreach/internal/stealth"
	"github.com/example/linkedreach/internal/store"
)

// ErrLimitReached signals the hard weekly invitation wall. The batch
// stops immediately; the partial summary is still returned alongside it.
var ErrLimitReached = errors.New("weekly invitation limit reached")

// Control-discovery rule lists, ordered most-specific first. Text
// patterns cover the two locales the account UI may render.

var actionsContainerRules = []browser.Matcher{
	{Selector: "div.pvs-sticky-header-profile-actions", Visible: true},
	{Selector: "main section.artdeco-card", Visible: true},
}

var connectButtonRules = []browser.Matcher{
	{Selector: "button", TextPattern: `^\s*(Connect|Conectar)\s*$`, Visible: true},
	{Selector: "button[aria-label^='Invite']", Visible: true},
	{Selector: "button[aria-label^='Invitar']", Visible: true},
}

var pendingButtonRules = []browser.Matcher{
	{Selector: "button", TextPattern: `^\s*(Pending|Pendiente)\s*$`, Visible: true},
}

var moreActionsRules = []browser.Matcher{
	{Selector: "button[aria-label='More actions']", Visible: true},
	{Selector: "button[aria-label='Más acciones']", Visible: true},
	{Selector: "button", TextPattern: `^\s*(More|Más)\s*$`, Visible: true},
}

var dropdownConnectRules = []browser.Matcher{
	{Selector: "div.artdeco-dropdown__content span", TextPattern: `^\s*(Connect|Conectar)\s*$`, Visible: true},
	{Selector: "div.artdeco-dropdown__content div[aria-label^='Invite']", Visible: true},
	{Selector: "div.artdeco-dropdown__content div[aria-label^='Invitar']", Visible: true},
}

var addNoteRules = []browser.Matcher{
	{Selector: "button", TextPattern: `^\s*(Add a note|Añadir una nota)\s*$`, Visible: true},
	{Selector: "button[aria-label='Add a note']", Visible: true},
}

var sendWithoutNoteRules = []browser.Matcher{
	{Selector: "button", TextPattern: `^\s*(Send without a note|Enviar sin nota)\s*$`, Visible: true},
	{Selector: "button[aria-label='Send without a note']", Visible: true},
	{Selector: "button", TextPattern: `^\s*(Send|Enviar)\s*$`, Visible: true},
}

var sendRules = []browser.Matcher{
	{Selector: "button[aria-label='Send invitation']", Visible: true},
	{Selector: "button[aria-label='Send now']", Visible: true},
	{Selector: "button", TextPattern: `^\s*(Send|Enviar)\s*$`, Visible: true},
}

var dismissRules = []browser.Matcher{
	{Selector: "button[aria-label='Dismiss']", Visible: true},
	{Selector: "button[aria-label='Descartar']", Visible: true},
	{Selector: "button.artdeco-modal__dismiss", Visible: true},
}

const (
	limitModalSel = "div.artdeco-modal.ip-fuse-limit-alert"
	lockedIconSel = "svg[data-test-icon='locked']"
	emailGateSel  = "label[for='email']"
	noteAreaSel   = "textarea#custom-message, textarea[name='message']"
)

type Engine struct {
	st    *store.Store
	cfg   *config.Config
	pacer stealth.Pacer
	log   *logging.Logger
}

func New(st *store.Store, cfg *config.Config, pacer stealth.Pacer) *Engine {
	return &Engine{st: st, cfg: cfg, pacer: pacer, log: logging.Module(cfg.Logging.Level, "connect")}
}

// SendRequests works through the candidate list until it is exhausted,
// the campaign's daily limit is filled, or the weekly wall appears. Each
// candidate lands in exactly one summary bucket. Per-candidate failures
// are recorded and do not stop the batch; only the weekly wall does,
// returned as ErrLimitReached with the partial summary.
func (e *Engine) SendRequests(ctx context.Context, sess *auth.Session, campaign *models.Campaign, profiles []models.Profile, report progress.Func) (models.RunSummary, error) {
	var summary models.RunSummary
	if sess == nil {
		return summary, auth.ErrNotAuthenticated
	}

	if len(profiles) == 0 {
		progress.Notify(report, "No profiles to process.")
		return summary, nil
	}

	dailyLimit := campaign.DailyLimit
	if dailyLimit <= 0 {
		dailyLimit = e.cfg.Limits.DailyConnectionLimit
	}

	progress.Notify(report, "Processing %d profiles (daily limit: %d)", len(profiles), dailyLimit)

	var batchErr error
	for _, prof := range profiles {
		if err := ctx.Err(); err != nil {
			batchErr = err
			break
		}
		if summary.Sent >= dailyLimit {
			progress.Notify(report, "Daily limit of %d reached, stopping.", dailyLimit)
			break
		}

		summary.TotalProcessed++
		outcome, err := e.processCandidate(ctx, sess, campaign, prof, report)
		switch outcome {
		case StateSent:
			summary.Sent++
			progress.Notify(report, "Sent request to %s (%d/%d)", prof.Name, summary.Sent, dailyLimit)
		case StateSkipped, StatePendingAlready:
			summary.Existing++
		default:
			summary.Failed++
			if err != nil {
				e.log.Warn("candidate failed", "name", prof.Name, "err", err)
			}
		}

		if outcome == StateLimited {
			progress.Notify(report, "Weekly invitation limit hit, stopping the batch.")
			batchErr = ErrLimitReached
			break
		}

		e.pacer.Sleep(e.cfg.Delays.ConnectionMinMs, e.cfg.Delays.ConnectionMaxMs)
	}

	if err := e.st.RecomputeCampaignStats(ctx, campaign.ID); err != nil {
		e.log.Warn("recompute stats failed", "campaign", campaign.ID, "err", err)
	}
	if err := e.st.TouchLastRun(ctx, campaign.ID); err != nil {
		e.log.Warn("touch last run failed", "campaign", campaign.ID, "err", err)
	}
	if summary.Sent > 0 {
		a := models.Analytics{
			CampaignID:      campaign.ID,
			Date:            time.Now().Format("2006-01-02"),
			ConnectionsSent: summary.Sent,
		}
		if err := e.st.RecordDailyAnalytics(ctx, &a); err != nil {
			e.log.Warn("record analytics failed", "campaign", campaign.ID, "err", err)
		}
	}

	progress.Notify(report, "Batch complete: %d sent, %d existing, %d failed of %d processed",
		summary.Sent, summary.Existing, summary.Failed, summary.TotalProcessed)
	return summary, batchErr
}

// processCandidate runs one candidate through the state machine and
// returns the terminal state. The contact row is created up front so a
// crash mid-candidate never loses the discovery.
func (e *Engine) processCandidate(ctx context.Context, sess *auth.Session, campaign *models.Campaign, prof models.Profile, report progress.Func) (State, error) {
	profileURL := search.NormalizeProfileURL(prof.ProfileURL, sess.BaseURL())

	contact, existing, err := e.ensureContact(ctx, campaign.ID, prof, profileURL)
	if err != nil {
		return StateFailed, err
	}
	if existing {
		return StateSkipped, nil
	}

	state := StateStart
	p := sess.Page()

	if err := e.pacer.Action(ctx); err != nil {
		return StateFailed, err
	}
	if err := p.Navigate(profileURL); err != nil {
		e.noteFailure(ctx, contact, "profile navigation failed")
		return Advance(state, EventUnreachable), fmt.Errorf("navigate %s: %w", profileURL, err)
	}
	_ = p.WaitLoad()
	stealth.ThinkTime()

	if browser.FindFirst(p, 10*time.Second, actionsContainerRules) == nil {
		e.noteFailure(ctx, contact, "profile actions not reachable")
		return Advance(state, EventUnreachable), fmt.Errorf("actions container missing on %s", profileURL)
	}
	state = Advance(state, EventProfileLoaded)

	if browser.FindFirst(p, 2*time.Second, pendingButtonRules) != nil {
		if merr := e.st.MarkPending(ctx, contact.ID); merr != nil {
			e.log.Warn("mark pending failed", "contact", contact.ID, "err", merr)
		}
		e.noteSkip(ctx, contact, "invitation already pending")
		return Advance(state, EventPendingFound), nil
	}

	connectBtn := browser.FindFirst(p, 3*time.Second, connectButtonRules)
	if connectBtn == nil {
		connectBtn = e.connectViaDropdown(p)
	}
	if connectBtn == nil {
		e.noteFailure(ctx, contact, "no connect control available")
		return Advance(state, EventNoConnect), nil
	}
	state = Advance(state, EventConnectFound)

	if err := e.pacer.Action(ctx); err != nil {
		return StateFailed, err
	}
	if err := stealth.ClickHumanLike(p, connectBtn); err != nil {
		e.noteFailure(ctx, contact, "connect click failed")
		return Advance(state, EventError), fmt.Errorf("click connect: %w", err)
	}
	stealth.SleepGaussian(1200, 400)

	if verdict := e.checkLimitModal(p); verdict == LimitWeekly {
		e.dismissModal(p)
		e.noteFailure(ctx, contact, "weekly invitation limit wall")
		return Advance(state, EventLimitHit), nil
	} else if verdict == LimitNear {
		progress.Notify(report, "Approaching the invitation limit.")
		e.dismissModal(p)
	}

	if browser.Has(p, emailGateSel, 2*time.Second) {
		e.dismissModal(p)
		e.noteFailure(ctx, contact, "email address required to invite")
		state = Advance(state, EventInviteOpened)
		return Advance(state, EventEmailRequired), nil
	}
	state = Advance(state, EventInviteOpened)

	if err := e.sendInvite(p, ComposeNote(campaign.MessageTemplate, prof.Name)); err != nil {
		e.noteFailure(ctx, contact, "send failed: "+err.Error())
		return Advance(state, EventError), err
	}
	stealth.SleepGaussian(1000, 400)

	// The wall can also surface only after the final send click.
	if e.checkLimitModal(p) == LimitWeekly {
		e.dismissModal(p)
		e.noteFailure(ctx, contact, "weekly invitation limit wall on send")
		return Advance(state, EventLimitHit), nil
	}

	if err := e.st.MarkSent(ctx, contact.ID, time.Now()); err != nil {
		return StateFailed, fmt.Errorf("mark sent: %w", err)
	}
	return Advance(state, EventSendConfirmed), nil
}

// ensureContact is the de-duplication gate. Any existing row for the
// canonical URL skips the candidate outright: a prior run already
// recorded its outcome, failures included. A new candidate gets its row
// created before any remote interaction so a crash mid-candidate never
// loses the discovery.
func (e *Engine) ensureContact(ctx context.Context, campaignID int64, prof models.Profile, profileURL string) (*models.Contact, bool, error) {
	contact, err := e.st.GetContactByURL(ctx, campaignID, profileURL)
	switch {
	case err == nil:
		e.log.Debug("already processed", "url", profileURL, "status", contact.Status)
		return contact, true, nil
	case errors.Is(err, store.ErrNotFound):
		contact = &models.Contact{
			CampaignID: campaignID,
			Name:       prof.Name,
			ProfileURL: profileURL,
			Headline:   prof.Headline,
			Location:   prof.Location,
			Company:    prof.Company,
			Status:     models.StatusFound,
		}
		if cerr := e.st.CreateContact(ctx, contact); cerr != nil {
			return nil, false, fmt.Errorf("create contact: %w", cerr)
		}
		return contact, false, nil
	default:
		return nil, false, fmt.Errorf("dedup lookup: %w", err)
	}
}

// connectViaDropdown opens the overflow actions menu and looks for the
// connect entry there; profiles with a prominent Follow action hide
// Connect behind it.
func (e *Engine) connectViaDropdown(p *rod.Page) *rod.Element {
	more := browser.FindFirst(p, 3*time.Second, moreActionsRules)
	if more == nil {
		return nil
	}
	if err := more.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return nil
	}
	stealth.SleepGaussian(700, 250)
	return browser.FindFirst(p, 3*time.Second, dropdownConnectRules)
}

// sendInvite drives the invitation overlay: with a note when the
// campaign has a template, otherwise the bare send path.
func (e *Engine) sendInvite(p *rod.Page, note string) error {
	if note != "" {
		if addNote := browser.FindFirst(p, 3*time.Second, addNoteRules); addNote != nil {
			if err := addNote.Click(proto.InputMouseButtonLeft, 1); err == nil {
				if area, aerr := p.Timeout(5 * time.Second).Element(noteAreaSel); aerr == nil {
					if terr := stealth.TypeHumanLike(area, note); terr != nil {
						return fmt.Errorf("type note: %w", terr)
					}
					send := browser.FindFirst(p, 3*time.Second, sendRules)
					if send == nil {
						return errors.New("send control missing after note")
					}
					return stealth.ClickHumanLike(p, send)
				}
			}
		}
		// No note affordance on this overlay variant, fall through.
	}

	send := browser.FindFirst(p, 3*time.Second, sendWithoutNoteRules)
	if send == nil {
		return errors.New("send control missing")
	}
	return stealth.ClickHumanLike(p, send)
}

func (e *Engine) checkLimitModal(p *rod.Page) LimitVerdict {
	modal, err := p.Timeout(2 * time.Second).Element(limitModalSel)
	if err != nil {
		return LimitNone
	}
	hasIcon := false
	if _, ierr := modal.Element(lockedIconSel); ierr == nil {
		hasIcon = true
	}
	header := ""
	for _, sel := range []string{"#ip-fuse-limit-alert__header", "h2"} {
		if h, herr := modal.Element(sel); herr == nil {
			if t, terr := h.Text(); terr == nil {
				header = t
				break
			}
		}
	}
	return ClassifyLimitModal(hasIcon, header)
}

func (e *Engine) dismissModal(p *rod.Page) {
	if btn := browser.FindFirst(p, 2*time.Second, dismissRules); btn != nil {
		_ = btn.Click(proto.InputMouseButtonLeft, 1)
		stealth.SleepGaussian(500, 200)
	}
}

func (e *Engine) noteSkip(ctx context.Context, c *models.Contact, note string) {
	if err := e.st.UpdateContactNotes(ctx, c.ID, note); err != nil {
		e.log.Warn("update notes failed", "contact", c.ID, "err", err)
	}
}

func (e *Engine) noteFailure(ctx context.Context, c *models.Contact, note string) {
	e.noteSkip(ctx, c, note)
}
