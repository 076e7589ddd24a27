package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/example/linkedreach/internal/auth"
	"github.com/example/linkedreach/internal/browser"
	"github.com/example/linkedreach/internal/checker"
	"github.com/example/linkedreach/internal/config"
	"github.com/example/linkedreach/internal/connect"
	"github.com/example/linkedreach/internal/logging"
	"github.com/example/linkedreach/internal/models"
	"github.com/example/linkedreach/internal/search"
	"github.com/example/linkedreach/internal/stealth"
	"github.com/example/linkedreach/internal/store"
)

func main() {
	ctx := context.Background()

	// Global flags
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config.yaml", "Path to config file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `linkedreach - LinkedIn connection campaign CLI

Usage:
  linkedreach [--config config.yaml] <command> [options]

Commands:
  login                               Ensure a logged-in session (with cookie reuse)
  create-campaign --name N [options]  Create a campaign
  list-campaigns [--all]              List campaigns with their stats
  search --campaign ID [--limit N]    Preview profiles matching a campaign's criteria
  send --campaign ID [--limit N]      Search and send connection requests
  check --campaign ID                 Check pending requests via the connections list
  check-direct --campaign ID          Check pending requests profile by profile
  monitor --campaigns 1,2 [options]   Check acceptances on an interval
  stats [--campaign ID]               Show dashboard or per-campaign stats
  run --campaign ID [--limit N]       Full cycle: search, send, then check

Examples:
  linkedreach --config config.yaml login
  linkedreach create-campaign --name "SF Engineers" --keywords "software engineer" --location "San Francisco Bay Area"
  linkedreach send --campaign 1 --limit 10
`)
	}

	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Logging.Level)
	log.Info("linkedreach starting", "version", "0.1.0")

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Error("db open failed", "err", err)
		os.Exit(1)
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		log.Error("db migration failed", "err", err)
		os.Exit(1)
	}

	cmd := flag.Arg(0)
	log.Info("executing command", "command", cmd)
	switch cmd {
	case "login":
		err = runLogin(ctx, cfg)
	case "create-campaign":
		err = runCreateCampaign(ctx, cfg, st)
	case "list-campaigns":
		err = runListCampaigns(ctx, st)
	case "search":
		err = runSearch(ctx, cfg, st)
	case "send":
		err = runSend(ctx, cfg, st)
	case "check":
		err = runCheck(ctx, cfg, st, false)
	case "check-direct":
		err = runCheck(ctx, cfg, st, true)
	case "monitor":
		err = runMonitor(ctx, cfg, st)
	case "stats":
		err = runStats(ctx, st)
	case "run":
		err = runFullCycle(ctx, cfg, st)
	default:
		err = fmt.Errorf("unknown command: %s", cmd)
	}

	if err != nil {
		log.Error("command failed", "cmd", cmd, "err", err)
		fmt.Fprintf(os.Stderr, "\n❌ Command failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "💡 Tip: Run with LINKEDREACH_LOG_LEVEL=debug for more details\n")
		os.Exit(1)
	}
	log.Info("command completed successfully", "cmd", cmd)
	fmt.Printf("\n✅ %s completed successfully\n", cmd)
}

func report(msg string) { fmt.Println(msg) }

// openSession launches the browser and logs in. The caller owns both
// returned values and must close them in order: session, then browser.
func openSession(ctx context.Context, cfg *config.Config) (*browser.Browser, *auth.Session, error) {
	br, err := browser.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	sess, err := auth.New(br, cfg).Login(ctx, report)
	if err != nil {
		br.Close()
		return nil, nil, err
	}
	return br, sess, nil
}

func runLogin(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(ctx, 6*time.Minute)
	defer cancel()
	br, sess, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	sess.Close()
	br.Close()
	return nil
}

func runCreateCampaign(ctx context.Context, cfg *config.Config, st *store.Store) error {
	fs := flag.NewFlagSet("create-campaign", flag.ContinueOnError)
	var name, description, keywords, location, industries, network, template string
	var dailyLimit int
	fs.StringVar(&name, "name", "", "Campaign name (required)")
	fs.StringVar(&description, "description", "", "Campaign description")
	fs.StringVar(&keywords, "keywords", "", "Search keywords")
	fs.StringVar(&location, "location", "Any", "Target location name")
	fs.StringVar(&industries, "industries", "", "Comma-separated industry names")
	fs.StringVar(&network, "network", "1st + 2nd degree connections", "Network degree filter")
	fs.StringVar(&template, "template", models.DefaultMessageTemplate, "Invitation note template ({name} placeholder)")
	fs.IntVar(&dailyLimit, "daily-limit", cfg.Limits.DailyConnectionLimit, "Max requests per run")
	if err := fs.Parse(flag.Args()[1:]); err != nil {
		return err
	}
	if name == "" {
		return errors.New("--name is required")
	}

	var industryNames []string
	for _, n := range strings.Split(industries, ",") {
		if n = strings.TrimSpace(n); n != "" {
			industryNames = append(industryNames, n)
		}
	}

	c := models.Campaign{
		Name:            name,
		Description:     description,
		Keywords:        keywords,
		GeoURN:          search.LocationURN(location),
		IndustryIDs:     search.IndustryIDsFor(industryNames),
		Network:         search.NetworkValue(network),
		DailyLimit:      dailyLimit,
		MessageTemplate: template,
		Active:          true,
	}
	if err := st.CreateCampaign(ctx, &c); err != nil {
		return err
	}
	fmt.Printf("Created campaign #%d %q\n", c.ID, c.Name)
	return nil
}

func runListCampaigns(ctx context.Context, st *store.Store) error {
	fs := flag.NewFlagSet("list-campaigns", flag.ContinueOnError)
	var all bool
	fs.BoolVar(&all, "all", false, "Include inactive campaigns")
	if err := fs.Parse(flag.Args()[1:]); err != nil {
		return err
	}

	campaigns, err := st.ListCampaigns(ctx, !all)
	if err != nil {
		return err
	}
	if len(campaigns) == 0 {
		fmt.Println("No campaigns yet. Create one with create-campaign.")
		return nil
	}
	for _, c := range campaigns {
		state := "active"
		if !c.Active {
			state = "inactive"
		}
		fmt.Printf("#%d %s [%s]\n", c.ID, c.Name, state)
		fmt.Printf("   keywords: %q  location: %s  network: %s\n",
			c.Keywords, search.LocationName(c.EffectiveGeoURN()), search.NetworkName(c.EffectiveNetwork()))
		fmt.Printf("   sent: %d  accepted: %d  pending: %d\n", c.TotalSent, c.TotalAccepted, c.TotalPending)
		if c.LastRun != nil {
			fmt.Printf("   last run: %s\n", c.LastRun.Format(time.RFC1123))
		}
	}
	return nil
}

func runSearch(ctx context.Context, cfg *config.Config, st *store.Store) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	var campaignID int64
	var limit int
	fs.Int64Var(&campaignID, "campaign", 0, "Campaign ID (required)")
	fs.IntVar(&limit, "limit", cfg.Limits.MaxProfilesPerSearch, "Max profiles to collect")
	if err := fs.Parse(flag.Args()[1:]); err != nil {
		return err
	}

	campaign, err := st.GetCampaign(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("campaign %d: %w", campaignID, err)
	}

	br, sess, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer br.Close()
	defer sess.Close()

	pacer := stealth.NewPacer(cfg.Delays.ActionsPerMin)
	profiles, err := search.New(cfg, pacer).Run(ctx, sess, campaign, limit, report)
	if err != nil {
		return err
	}
	for i, p := range profiles {
		fmt.Printf("%3d. %s\n     %s\n", i+1, p.Name, p.ProfileURL)
	}
	return nil
}

func runSend(ctx context.Context, cfg *config.Config, st *store.Store) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	var campaignID int64
	var limit int
	fs.Int64Var(&campaignID, "campaign", 0, "Campaign ID (required)")
	fs.IntVar(&limit, "limit", 0, "Override the campaign daily limit for this run")
	if err := fs.Parse(flag.Args()[1:]); err != nil {
		return err
	}

	campaign, err := st.GetCampaign(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("campaign %d: %w", campaignID, err)
	}
	if limit > 0 {
		campaign.DailyLimit = limit
	}

	br, sess, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer br.Close()
	defer sess.Close()

	pacer := stealth.NewPacer(cfg.Delays.ActionsPerMin)
	profiles, err := search.New(cfg, pacer).Run(ctx, sess, campaign, campaign.DailyLimit*3, report)
	if err != nil {
		return err
	}

	summary, err := connect.New(st, cfg, pacer).SendRequests(ctx, sess, campaign, profiles, report)
	fmt.Printf("Sent: %d  Existing: %d  Failed: %d  Processed: %d\n",
		summary.Sent, summary.Existing, summary.Failed, summary.TotalProcessed)
	if errors.Is(err, connect.ErrLimitReached) {
		fmt.Println("Stopped early: the weekly invitation limit is in effect.")
		return nil
	}
	return err
}

func runCheck(ctx context.Context, cfg *config.Config, st *store.Store, direct bool) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	var campaignID int64
	fs.Int64Var(&campaignID, "campaign", 0, "Campaign ID (required)")
	if err := fs.Parse(flag.Args()[1:]); err != nil {
		return err
	}
	if _, err := st.GetCampaign(ctx, campaignID); err != nil {
		return fmt.Errorf("campaign %d: %w", campaignID, err)
	}

	br, sess, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer br.Close()
	defer sess.Close()

	pacer := stealth.NewPacer(cfg.Delays.ActionsPerMin)
	ch := checker.New(st, cfg, pacer)

	var result models.CheckResult
	if direct {
		result, err = ch.DirectCheck(ctx, sess, campaignID, report)
	} else {
		result, err = ch.SmartCheck(ctx, sess, campaignID, report)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Checked: %d  Newly accepted: %d\n", result.Checked, result.NewlyAccepted)
	return nil
}

func runMonitor(ctx context.Context, cfg *config.Config, st *store.Store) error {
	fs := flag.NewFlagSet("monitor", flag.ContinueOnError)
	var campaigns string
	var intervalMin, iterations int
	fs.StringVar(&campaigns, "campaigns", "", "Comma-separated campaign IDs (default: all active)")
	fs.IntVar(&intervalMin, "interval", cfg.Checker.IntervalMinutes, "Minutes between iterations")
	fs.IntVar(&iterations, "iterations", cfg.Checker.MaxIterations, "Max iterations")
	if err := fs.Parse(flag.Args()[1:]); err != nil {
		return err
	}

	var ids []int64
	if campaigns == "" {
		active, err := st.ListCampaigns(ctx, true)
		if err != nil {
			return err
		}
		for _, c := range active {
			ids = append(ids, c.ID)
		}
	} else {
		for _, part := range strings.Split(campaigns, ",") {
			var id int64
			if _, err := fmt.Sscanf(strings.TrimSpace(part), "%d", &id); err != nil {
				return fmt.Errorf("bad campaign id %q", part)
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return errors.New("no campaigns to monitor")
	}

	br, sess, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer br.Close()
	defer sess.Close()

	pacer := stealth.NewPacer(cfg.Delays.ActionsPerMin)
	result, err := checker.New(st, cfg, pacer).Monitor(ctx, sess, ids,
		time.Duration(intervalMin)*time.Minute, iterations, report)
	if err != nil {
		return err
	}
	fmt.Printf("Monitored %d campaigns over %d iterations: %d checks, %d newly accepted\n",
		result.CampaignsMonitored, result.Iterations, result.TotalChecked, result.TotalNewlyAccepted)
	return nil
}

func runStats(ctx context.Context, st *store.Store) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	var campaignID int64
	var days int
	fs.Int64Var(&campaignID, "campaign", 0, "Campaign ID (0 for the dashboard)")
	fs.IntVar(&days, "days", 30, "Days of per-campaign analytics to show")
	if err := fs.Parse(flag.Args()[1:]); err != nil {
		return err
	}

	if campaignID == 0 {
		d, err := st.GetDashboardStats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Campaigns: %d (%d active)\n", d.TotalCampaigns, d.ActiveCampaigns)
		fmt.Printf("Contacts:  %d\n", d.TotalContacts)
		fmt.Printf("Sent:      %d\n", d.TotalSent)
		fmt.Printf("Accepted:  %d (%.1f%%)\n", d.TotalAccepted, d.AcceptanceRate)
		fmt.Printf("Pending:   %d\n", d.TotalPending)
		return nil
	}

	c, err := st.GetCampaign(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("campaign %d: %w", campaignID, err)
	}
	fmt.Printf("#%d %s\n", c.ID, c.Name)
	fmt.Printf("Sent: %d  Accepted: %d  Pending: %d\n", c.TotalSent, c.TotalAccepted, c.TotalPending)

	rows, err := st.GetCampaignAnalytics(ctx, campaignID, days)
	if err != nil {
		return err
	}
	for _, a := range rows {
		fmt.Printf("  %s  sent=%d accepted=%d (%.1f%%)\n",
			a.Date, a.ConnectionsSent, a.ConnectionsAccepted, a.AcceptanceRate)
	}
	return nil
}

func runFullCycle(ctx context.Context, cfg *config.Config, st *store.Store) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	var campaignID int64
	var limit int
	fs.Int64Var(&campaignID, "campaign", 0, "Campaign ID (required)")
	fs.IntVar(&limit, "limit", 0, "Override the campaign daily limit for this run")
	if err := fs.Parse(flag.Args()[1:]); err != nil {
		return err
	}

	campaign, err := st.GetCampaign(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("campaign %d: %w", campaignID, err)
	}
	if limit > 0 {
		campaign.DailyLimit = limit
	}

	br, sess, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer br.Close()
	defer sess.Close()

	pacer := stealth.NewPacer(cfg.Delays.ActionsPerMin)

	profiles, err := search.New(cfg, pacer).Run(ctx, sess, campaign, campaign.DailyLimit*3, report)
	if err != nil {
		return err
	}

	summary, err := connect.New(st, cfg, pacer).SendRequests(ctx, sess, campaign, profiles, report)
	if err != nil && !errors.Is(err, connect.ErrLimitReached) {
		return err
	}
	fmt.Printf("Sent: %d  Existing: %d  Failed: %d\n", summary.Sent, summary.Existing, summary.Failed)

	result, err := checker.New(st, cfg, pacer).SmartCheck(ctx, sess, campaignID, report)
	if err != nil {
		return err
	}
	fmt.Printf("Checked: %d  Newly accepted: %d\n", result.Checked, result.NewlyAccepted)
	return nil
}
