package console

import (
	"testing"

	"github.com/pkg/errors"
)

// TestTypedAccessors verifies the typed views over the string value.
func TestTypedAccessors(t *testing.T) {
	s := NewStore()
	s.RegisterInt("mp_winlimit", 3, Archive, "wins per map", 0, 100)
	s.RegisterFloat("sv_timeout", 10.5, 0, "timeout", 0, 300)
	s.RegisterBool("mp_switch_teams", true, Replicated, "switch")

	if got := s.Find("mp_winlimit").Int(); got != 3 {
		t.Errorf("Int() = %d, want 3", got)
	}
	if got := s.Find("sv_timeout").Float(); got != 10.5 {
		t.Errorf("Float() = %v, want 10.5", got)
	}
	if !s.Find("mp_switch_teams").Bool() {
		t.Error("Bool() = false, want true")
	}
}

// TestSetValidation covers range checks, read-only and rcon guards.
func TestSetValidation(t *testing.T) {
	s := NewStore()
	s.RegisterInt("sv_playerlimit", 32, 0, "limit", 1, 255)
	s.RegisterInt("sv_port", 25605, ReadOnly, "port", 0, 65535)
	s.Register("sv_password", "", NoRcon, "password")

	if err := s.Set("sv_playerlimit", "64", false); err != nil {
		t.Fatalf("valid set failed: %v", err)
	}
	if err := s.Set("sv_playerlimit", "999", false); !errors.Is(err, ErrBadValue) {
		t.Fatalf("out of range accepted: %v", err)
	}
	if err := s.Set("sv_playerlimit", "abc", false); !errors.Is(err, ErrBadValue) {
		t.Fatalf("garbage accepted: %v", err)
	}
	if err := s.Set("sv_port", "1", false); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("read-only set accepted: %v", err)
	}
	if err := s.Set("sv_password", "x", true); !errors.Is(err, ErrNoRcon) {
		t.Fatalf("norcon set over rcon accepted: %v", err)
	}
	if err := s.Set("sv_password", "x", false); err != nil {
		t.Fatalf("local set of norcon cvar failed: %v", err)
	}
	if err := s.Set("nope", "1", false); !errors.Is(err, ErrUnknownCvar) {
		t.Fatalf("unknown cvar accepted: %v", err)
	}
}

// TestOnChange verifies the change callback fires only on real changes.
func TestOnChange(t *testing.T) {
	s := NewStore()
	c := s.RegisterInt("mp_roundlimit", 0, 0, "rounds", 0, 100)

	fired := 0
	c.OnChange(func(string) { fired++ })

	if err := s.Set("mp_roundlimit", "5", false); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("mp_roundlimit", "5", false); err != nil {
		t.Fatal(err)
	}
	if fired != 1 {
		t.Fatalf("callback fired %d times, want 1", fired)
	}
}

// TestWithFlags verifies flag filtering for replication and archiving.
func TestWithFlags(t *testing.T) {
	s := NewStore()
	s.Register("a", "1", Archive, "")
	s.Register("b", "2", Replicated, "")
	s.Register("c", "3", Archive|Replicated, "")
	s.Register("d", "4", 0, "")

	archived := s.WithFlags(Archive)
	if len(archived) != 2 {
		t.Fatalf("archived = %d, want 2", len(archived))
	}
	if archived[0].Name() != "a" || archived[1].Name() != "c" {
		t.Fatalf("archive set wrong or unsorted: %v, %v", archived[0].Name(), archived[1].Name())
	}
	if got := len(s.WithFlags(Replicated)); got != 2 {
		t.Fatalf("replicated = %d, want 2", got)
	}
}

// TestReregisterKeepsValue verifies re-registration preserves the live
// value so config re-exec does not reset tuning.
func TestReregisterKeepsValue(t *testing.T) {
	s := NewStore()
	s.RegisterInt("mp_winlimit", 3, 0, "", 0, 100)
	if err := s.Set("mp_winlimit", "7", false); err != nil {
		t.Fatal(err)
	}
	s.RegisterInt("mp_winlimit", 3, 0, "", 0, 100)
	if got := s.Find("mp_winlimit").Int(); got != 7 {
		t.Fatalf("value after re-register = %d, want 7", got)
	}
}
