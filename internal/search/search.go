package search

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/example/linkedreach/internal/auth"
	"github.com/example/linkedreach/internal/browser"
	"github.com/example/linkedreach/internal/config"
	"github.com/example/linkedreach/internal/logging"
	"github.com/example/linkedreach/internal/models"
	"github.com/example/linkedreach/internal/progress"
	"github.com/example/linkedreach/internal/stealth"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

type Service struct {
	cfg   *config.Config
	pacer stealth.Pacer
	log   *logging.Logger
}

func New(cfg *config.Config, pacer stealth.Pacer) *Service {
	return &Service{cfg: cfg, pacer: pacer, log: logging.Module(cfg.Logging.Level, "search")}
}

// BuildSearchParams maps a campaign's targeting criteria onto the people
// listing's query string. Pure: the same campaign fields always produce
// the same string. Parameter order is fixed: keywords, geoUrn, industry,
// network, origin.
func BuildSearchParams(c *models.Campaign) string {
	var params []string

	if c.Keywords != "" {
		// Spaces encode as %20, matching what the listing itself emits.
		escaped := strings.ReplaceAll(url.QueryEscape(c.Keywords), "+", "%20")
		params = append(params, "keywords="+escaped)
	}

	if geo := c.EffectiveGeoURN(); geo != "" {
		params = append(params, fmt.Sprintf(`geoUrn=["%s"]`, geo))
	}

	if ids := c.EffectiveIndustryIDs(); ids != "" {
		if formatted := FormatIDsForURL(ids); formatted != "" {
			params = append(params, "industry="+formatted)
		}
	}

	params = append(params, "network="+c.EffectiveNetwork())
	params = append(params, "origin=FACETED_SEARCH")

	return strings.Join(params, "&")
}

// Run walks the people listing for up to limit candidates. Requires an
// authenticated session. Extraction failures are per-element; a remote
// error mid-walk degrades to returning what was collected so far.
func (s *Service) Run(ctx context.Context, sess *auth.Session, campaign *models.Campaign, limit int, report progress.Func) ([]models.Profile, error) {
	if sess == nil {
		return nil, auth.ErrNotAuthenticated
	}
	if limit <= 0 {
		limit = s.cfg.Limits.MaxProfilesPerSearch
	}

	p := sess.Page()
	searchURL := sess.BaseURL() + "/search/results/people/?" + BuildSearchParams(campaign)

	progress.Notify(report, "Starting profile search...")
	s.log.Info("navigating to search", "url", searchURL)

	if err := s.pacer.Action(ctx); err != nil {
		return nil, err
	}
	if err := p.Navigate(searchURL); err != nil {
		return nil, fmt.Errorf("navigate search: %w", err)
	}
	if err := browser.WaitVisible(p, ".search-results-container", 10*time.Second); err != nil {
		_ = browser.ScreenshotOnError(p, "search_fail", err)
		return nil, fmt.Errorf("search results did not render: %w", err)
	}

	var profiles []models.Profile
	maxPages := s.cfg.Limits.MaxSearchPages

	for pageNum := 1; len(profiles) < limit && pageNum <= maxPages; pageNum++ {
		progress.Notify(report, "Scanning page %d...", pageNum)

		if _, err := p.Timeout(10 * time.Second).Element("[data-chameleon-result-urn]"); err != nil {
			s.log.Warn("no result elements on page", "page", pageNum, "err", err)
			break
		}

		elements, err := p.Elements("[data-chameleon-result-urn]")
		if err != nil {
			s.log.Warn("result query failed", "page", pageNum, "err", err)
			break
		}

		onPage := 0
		for _, el := range elements {
			if len(profiles) >= limit {
				break
			}
			prof, ok := extractProfile(el, sess.BaseURL())
			if !ok {
				continue
			}
			profiles = append(profiles, prof)
			onPage++
		}

		progress.Notify(report, "Found %d profiles on page %d (Total: %d)", onPage, pageNum, len(profiles))

		next, err := p.Timeout(3 * time.Second).Element("button[aria-label='Next']")
		if err != nil {
			break
		}
		if disabled, _ := next.Attribute("disabled"); disabled != nil {
			break
		}
		if err := s.pacer.Action(ctx); err != nil {
			return profiles, err
		}
		if err := next.Click(proto.InputMouseButtonLeft, 1); err != nil {
			s.log.Warn("next page click failed", "page", pageNum, "err", err)
			break
		}
		s.pacer.Sleep(2000, 3000)
	}

	progress.Notify(report, "Search complete! Found %d profiles", len(profiles))
	return profiles, nil
}

// headlineHints are words that make a text block look like a headline
// rather than a name or location. The remote markup gives no stable
// class for either, so classification is keyword-based.
var headlineHints = []string{
	"engineer", "manager", "developer", "designer", "director", "founder",
	"consultant", "analyst", "specialist", "lead", "senior", "junior",
	"intern", "at ", "•",
}

var locationHints = []string{
	", ", " Area", "United States", "Canada", "UK", "London", "New York",
	"San Francisco", "Remote",
}

func extractProfile(el *rod.Element, baseURL string) (models.Profile, bool) {
	link, err := el.Element("a[href*='/in/']")
	if err != nil {
		link, err = el.Element("a.app-aware-link")
		if err != nil {
			return models.Profile{}, false
		}
	}

	href, err := link.Attribute("href")
	if err != nil || href == nil {
		return models.Profile{}, false
	}
	profileURL := NormalizeProfileURL(*href, baseURL)
	if !strings.Contains(profileURL, "/in/") {
		return models.Profile{}, false
	}

	name := ""
	if txt, err := link.Text(); err == nil {
		name = strings.TrimSpace(txt)
	}
	if name == "" {
		if aria, err := link.Attribute("aria-label"); err == nil && aria != nil {
			name = strings.TrimSpace(*aria)
		}
	}
	if name == "" {
		if span, err := el.Element("span[aria-hidden='true']"); err == nil {
			if txt, terr := span.Text(); terr == nil {
				name = strings.TrimSpace(txt)
			}
		}
	}
	if name == "" {
		return models.Profile{}, false
	}

	prof := models.Profile{Name: name, ProfileURL: profileURL}

	if divs, err := el.Elements("div"); err == nil {
		for _, d := range divs {
			txt, terr := d.Text()
			if terr != nil {
				continue
			}
			txt = strings.TrimSpace(txt)
			if prof.Headline == "" && len(txt) > 10 && len(txt) < 200 && txt != name && containsAny(strings.ToLower(txt), headlineHints) {
				prof.Headline = txt
				continue
			}
			if prof.Location == "" && len(txt) > 2 && len(txt) < 100 && containsAny(txt, locationHints) {
				prof.Location = txt
			}
			if prof.Headline != "" && prof.Location != "" {
				break
			}
		}
	}

	return prof, true
}

func containsAny(s string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}

// NormalizeProfileURL canonicalizes a profile address for use as the
// de-duplication key: query and fragment stripped, absolute, trailing
// slash.
func NormalizeProfileURL(u, baseURL string) string {
	if u == "" {
		return ""
	}
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	if strings.HasPrefix(u, "/in/") {
		u = baseURL + u
	}
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u
}

// Location is one geo typeahead hit.
type Location struct {
	Name   string
	GeoURN string
}

// Locations queries the typeahead endpoint through the authenticated page
// so the session's cookies apply. Failures degrade to an empty list.
func (s *Service) Locations(ctx context.Context, sess *auth.Session, query string) ([]Location, error) {
	if sess == nil {
		return nil, auth.ErrNotAuthenticated
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	endpoint := sess.BaseURL() + "/voyager/api/typeahead/hitsV2" +
		"?keywords=" + url.QueryEscape(strings.TrimSpace(query)) +
		"&origin=OTHER&q=type" +
		"&queryContext=List(geoVersion->3,bingGeoSubTypeFilters->MARKET_AREA|COUNTRY_REGION|ADMIN_DIVISION_1|CITY)" +
		"&type=GEO"

	res, err := sess.Page().Eval(`async (u) => {
		const r = await fetch(u, { headers: { accept: 'application/json' } });
		if (!r.ok) return null;
		return r.json();
	}`, endpoint)
	if err != nil || res == nil {
		s.log.Warn("location typeahead failed", "query", query, "err", err)
		return nil, nil
	}

	var out []Location
	for _, el := range res.Value.Get("data").Get("elements").Arr() {
		target := el.Get("targetUrn").Str()
		urn := target
		if i := strings.LastIndex(target, ":"); i >= 0 {
			urn = target[i+1:]
		}
		name := strings.TrimSpace(el.Get("text").Get("text").Str())
		if name != "" && urn != "" {
			out = append(out, Location{Name: name, GeoURN: urn})
		}
	}
	return out, nil
}
