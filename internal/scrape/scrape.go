// Package scrape extracts profile details from an already-open profile
// page. Every extractor is best effort: missing markup yields empty
// fields, never an error that aborts the calling workflow.
package scrape

import (
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/example/linkedreach/internal/models"
	"github.com/example/linkedreach/internal/stealth"
)

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`\+?[\d\s().\-]{7,}`)
)

// ContactInfo opens the profile's contact-info overlay, pulls whatever
// email, phone, and address it exposes, and dismisses the overlay again.
// The page is expected to be on a profile already.
func ContactInfo(p *rod.Page) models.ContactDetails {
	var details models.ContactDetails

	link, err := p.Timeout(5 * time.Second).Element("a[href*='overlay/contact-info']")
	if err != nil {
		return details
	}
	if err := link.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return details
	}

	modal, err := p.Timeout(8 * time.Second).Element("div.artdeco-modal")
	if err != nil {
		return details
	}
	stealth.SleepGaussian(800, 300)

	if mail, err := modal.Element("a[href^='mailto:']"); err == nil {
		if href, herr := mail.Attribute("href"); herr == nil && href != nil {
			details.Email = strings.TrimPrefix(*href, "mailto:")
		}
	}
	if details.Email == "" {
		if txt, terr := modal.Text(); terr == nil {
			details.Email = emailRe.FindString(txt)
		}
	}

	if tel, err := modal.Element("a[href^='tel:']"); err == nil {
		if href, herr := tel.Attribute("href"); herr == nil && href != nil {
			details.Phone = cleanPhone(strings.TrimPrefix(*href, "tel:"))
		}
	}
	if details.Phone == "" {
		if section, serr := modal.Element("section.ci-phone"); serr == nil {
			if txt, terr := section.Text(); terr == nil {
				details.Phone = cleanPhone(phoneRe.FindString(txt))
			}
		}
	}

	if section, serr := modal.Element("section.ci-address"); serr == nil {
		if txt, terr := section.Text(); terr == nil {
			details.Address = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(txt), "Address"))
		}
	}

	dismiss(p)
	return details
}

func cleanPhone(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		if r == '+' || r == '(' || r == ')' || r == '-' || r == ' ' || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func dismiss(p *rod.Page) {
	if btn, err := p.Timeout(3 * time.Second).Element("button[aria-label='Dismiss'], button.artdeco-modal__dismiss"); err == nil {
		_ = btn.Click(proto.InputMouseButtonLeft, 1)
		stealth.SleepGaussian(500, 200)
	}
}

// Headline reads the profile's headline line, trying the stable class
// first and falling back to the heading sibling.
func Headline(p *rod.Page) string {
	for _, sel := range []string{
		"div.text-body-medium.break-words",
		"div.ph5 div.text-body-medium",
	} {
		if el, err := p.Timeout(3 * time.Second).Element(sel); err == nil {
			if txt, terr := el.Text(); terr == nil {
				if t := strings.TrimSpace(txt); t != "" {
					return t
				}
			}
		}
	}
	return ""
}

// Location reads the profile's location line.
func Location(p *rod.Page) string {
	for _, sel := range []string{
		"span.text-body-small.inline.t-black--light.break-words",
		"div.ph5 span.text-body-small",
	} {
		if el, err := p.Timeout(3 * time.Second).Element(sel); err == nil {
			if txt, terr := el.Text(); terr == nil {
				if t := strings.TrimSpace(txt); t != "" {
					return t
				}
			}
		}
	}
	return ""
}

// IsConnected reports whether the open profile is already a 1st-degree
// connection. Several independent signals are checked because the markup
// varies by locale and rollout.
func IsConnected(p *rod.Page) bool {
	if _, err := p.Timeout(2 * time.Second).ElementR("span.dist-value", `^1st$`); err == nil {
		return true
	}
	if _, err := p.Timeout(2 * time.Second).ElementR("span", `^\s*(1st|1\.?º)\s*$`); err == nil {
		return true
	}
	// A visible Message action with no Connect action also implies an
	// existing connection.
	if _, err := p.Timeout(2 * time.Second).Element("div.pvs-sticky-header-profile-actions"); err == nil {
		msg, merr := p.Timeout(2 * time.Second).ElementR("button, a", `^(Message|Enviar mensaje)$`)
		if merr == nil && msg != nil {
			if _, cerr := p.Timeout(1 * time.Second).ElementR("button", `^(Connect|Conectar)$`); cerr != nil {
				return true
			}
		}
	}
	return false
}

// IsOpenToWork reports whether the profile carries the open-to-work photo
// frame, which some campaigns use to prioritize candidates.
func IsOpenToWork(p *rod.Page) bool {
	if _, err := p.Timeout(2 * time.Second).Element("img[alt*='#OPEN_TO_WORK']"); err == nil {
		return true
	}
	_, err := p.Timeout(1 * time.Second).ElementR("span", `(?i)open to work`)
	return err == nil
}
