package connect

import (
	"strings"
	"unicode"
)

// LimitVerdict classifies the invitation-limit overlay that can appear
// after a connect or send click.
type LimitVerdict int

const (
	// LimitNone means no limit overlay was present.
	LimitNone LimitVerdict = iota
	// LimitNear is the soft warning variant: an overlay without the locked
	// icon and the weekly-limit header. The invitation still goes through.
	LimitNear
	// LimitWeekly is the hard wall: the locked icon or a recognized
	// weekly-limit header. No further invitations will be accepted.
	LimitWeekly
)

// weeklyLimitHeaders are the overlay headlines that identify the hard
// weekly wall, in the two locales the account UI may render.
var weeklyLimitHeaders = []string{
	"you've reached the weekly invitation limit",
	"has alcanzado el límite semanal de invitaciones",
}

// ClassifyLimitModal decides whether a limit overlay is the hard weekly
// wall or only the near-limit warning. Either signal alone confirms the
// wall: the locked icon (survives copy rewording) or a recognized
// header (survives icon changes). Header matching ignores case and a
// trailing period, since the copy varies between rollouts.
func ClassifyLimitModal(hasLockedIcon bool, header string) LimitVerdict {
	if hasLockedIcon {
		return LimitWeekly
	}
	h := strings.ToLower(strings.TrimSpace(header))
	h = strings.TrimSuffix(h, ".")
	for _, known := range weeklyLimitHeaders {
		if h == known {
			return LimitWeekly
		}
	}
	return LimitNear
}

// ComposeNote renders the invitation note from a campaign template. The
// {name} placeholder becomes the candidate's title-cased first name. An
// empty template means "send without a note".
func ComposeNote(template, fullName string) string {
	if template == "" {
		return ""
	}
	first := firstName(fullName)
	return strings.ReplaceAll(template, "{name}", first)
}

func firstName(fullName string) string {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return ""
	}
	runes := []rune(strings.ToLower(fields[0]))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// Candidate state machine. The engine advances one candidate through
// these states; Advance is pure so transitions are testable without a
// browser.

type State string

const (
	StateStart        State = "start"
	StateProfileOpen  State = "profile_open"
	StateConnectReady State = "connect_ready"
	StateInviteOpen   State = "invite_open"

	// Terminal states. Each maps to exactly one summary bucket:
	// sent, existing (already recorded or already invited), failed,
	// or the batch-halting limit wall.
	StateSent           State = "sent"
	StateSkipped        State = "skipped"
	StatePendingAlready State = "pending_already"
	StateFailed         State = "failed"
	StateLimited        State = "limited"
)

type Event string

const (
	EventProfileLoaded Event = "profile_loaded"
	EventUnreachable   Event = "unreachable"
	EventConnectFound  Event = "connect_found"
	EventPendingFound  Event = "pending_found"
	EventNoConnect     Event = "no_connect"
	EventInviteOpened  Event = "invite_opened"
	EventEmailRequired Event = "email_required"
	EventLimitHit      Event = "limit_hit"
	EventSendConfirmed Event = "send_confirmed"
	EventError         Event = "error"
)

var transitions = map[State]map[Event]State{
	StateStart: {
		EventProfileLoaded: StateProfileOpen,
		EventUnreachable:   StateFailed,
	},
	StateProfileOpen: {
		EventConnectFound: StateConnectReady,
		EventPendingFound: StatePendingAlready,
		EventNoConnect:    StateFailed,
	},
	StateConnectReady: {
		EventInviteOpened: StateInviteOpen,
		EventLimitHit:     StateLimited,
	},
	StateInviteOpen: {
		EventSendConfirmed: StateSent,
		EventEmailRequired: StateFailed,
		EventLimitHit:      StateLimited,
	},
}

// Advance applies one event. EventError fails from any non-terminal
// state; any other event not defined for the current state is a logic
// error and also lands in StateFailed.
func Advance(s State, e Event) State {
	if s.Terminal() {
		return s
	}
	if e == EventError {
		return StateFailed
	}
	if next, ok := transitions[s][e]; ok {
		return next
	}
	return StateFailed
}

// Terminal reports whether no further events apply.
func (s State) Terminal() bool {
	switch s {
	case StateSent, StateSkipped, StatePendingAlready, StateFailed, StateLimited:
		return true
	}
	return false
}
