package connect

import "testing"

func TestClassifyLimitModal(t *testing.T) {
	cases := []struct {
		name   string
		icon   bool
		header string
		want   LimitVerdict
	}{
		{"english wall", true, "You've reached the weekly invitation limit", LimitWeekly},
		{"english wall trailing period", true, "You've reached the weekly invitation limit.", LimitWeekly},
		{"spanish wall", true, "Has alcanzado el límite semanal de invitaciones", LimitWeekly},
		{"spanish wall trailing period", true, "Has alcanzado el límite semanal de invitaciones.", LimitWeekly},
		// Either signal alone confirms the wall: the icon survives
		// copy rewording, the header survives icon changes.
		{"icon with reworded header", true, "Grow your network faster", LimitWeekly},
		{"english header without icon", false, "You've reached the weekly invitation limit", LimitWeekly},
		{"spanish header without icon", false, "Has alcanzado el límite semanal de invitaciones.", LimitWeekly},
		{"neither", false, "Something else entirely", LimitNear},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyLimitModal(tc.icon, tc.header); got != tc.want {
				t.Errorf("ClassifyLimitModal(%v, %q) = %v, want %v", tc.icon, tc.header, got, tc.want)
			}
		})
	}
}

func TestComposeNote(t *testing.T) {
	cases := []struct {
		template string
		fullName string
		want     string
	}{
		{"Hi {name}, let's connect!", "Jane Doe", "Hi Jane, let's connect!"},
		{"Hi {name}, let's connect!", "JANE DOE", "Hi Jane, let's connect!"},
		{"Hi {name}, let's connect!", "jane", "Hi Jane, let's connect!"},
		{"Hi {name}, {name}!", "jane doe", "Hi Jane, Jane!"},
		{"No placeholder here", "Jane Doe", "No placeholder here"},
		{"", "Jane Doe", ""},
		{"Hi {name}!", "", "Hi !"},
	}
	for _, tc := range cases {
		if got := ComposeNote(tc.template, tc.fullName); got != tc.want {
			t.Errorf("ComposeNote(%q, %q) = %q, want %q", tc.template, tc.fullName, got, tc.want)
		}
	}
}

func TestAdvance(t *testing.T) {
	cases := []struct {
		from State
		ev   Event
		want State
	}{
		{StateStart, EventProfileLoaded, StateProfileOpen},
		{StateStart, EventUnreachable, StateFailed},
		{StateProfileOpen, EventConnectFound, StateConnectReady},
		// An existing invitation is the only skip that counts as
		// existing; a missing control or an email gate is a failure.
		{StateProfileOpen, EventPendingFound, StatePendingAlready},
		{StateProfileOpen, EventNoConnect, StateFailed},
		{StateConnectReady, EventInviteOpened, StateInviteOpen},
		{StateConnectReady, EventLimitHit, StateLimited},
		{StateInviteOpen, EventSendConfirmed, StateSent},
		{StateInviteOpen, EventEmailRequired, StateFailed},
		{StateInviteOpen, EventLimitHit, StateLimited},
		// Errors fail from anywhere non-terminal.
		{StateProfileOpen, EventError, StateFailed},
		// Undefined pairs are logic errors.
		{StateStart, EventSendConfirmed, StateFailed},
	}
	for _, tc := range cases {
		if got := Advance(tc.from, tc.ev); got != tc.want {
			t.Errorf("Advance(%s, %s) = %s, want %s", tc.from, tc.ev, got, tc.want)
		}
	}
}

func TestTerminalStatesAbsorb(t *testing.T) {
	for _, s := range []State{StateSent, StateSkipped, StatePendingAlready, StateFailed, StateLimited} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
		if got := Advance(s, EventProfileLoaded); got != s {
			t.Errorf("terminal %s advanced to %s", s, got)
		}
	}
	for _, s := range []State{StateStart, StateProfileOpen, StateConnectReady, StateInviteOpen} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
