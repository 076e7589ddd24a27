package checker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/example/linkedreach/internal/auth"
	"github.com/example/linkedreach/internal/config"
	"github.com/example/linkedreach/internal/stealth"
	"github.com/example/linkedreach/internal/store"
)

func TestCleanProfileURL(t *testing.T) {
	base := "https://www.linkedin.com"
	cases := []struct {
		in   string
		want string
	}{
		{"/in/jane-doe", base + "/in/jane-doe/"},
		{base + "/in/jane-doe?trk=connections_list", base + "/in/jane-doe/"},
		{base + "/in/jane-doe/#about", base + "/in/jane-doe/"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := CleanProfileURL(tc.in, base); got != tc.want {
			t.Errorf("CleanProfileURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func testChecker(t *testing.T) *Checker {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(st.Close)
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return New(st, cfg, stealth.NoDelay())
}

func TestChecksRequireSession(t *testing.T) {
	c := testChecker(t)
	ctx := context.Background()

	if _, err := c.SmartCheck(ctx, nil, 1, nil); !errors.Is(err, auth.ErrNotAuthenticated) {
		t.Errorf("SmartCheck: want ErrNotAuthenticated, got %v", err)
	}
	if _, err := c.DirectCheck(ctx, nil, 1, nil); !errors.Is(err, auth.ErrNotAuthenticated) {
		t.Errorf("DirectCheck: want ErrNotAuthenticated, got %v", err)
	}
	if _, err := c.Monitor(ctx, nil, []int64{1}, 0, 0, nil); !errors.Is(err, auth.ErrNotAuthenticated) {
		t.Errorf("Monitor: want ErrNotAuthenticated, got %v", err)
	}
}
