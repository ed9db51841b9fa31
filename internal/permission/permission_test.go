package permission_test

import (
	"testing"

	"github.com/voxbot-dev/voxbot/internal/permission"
)

func TestResolveAllowLists(t *testing.T) {
	r := permission.NewResolver([]string{"U1"}, []string{"U2"})

	if got := r.Resolve("U1"); got != permission.Admin {
		t.Errorf("Resolve(U1) = %v, want admin", got)
	}
	if got := r.Resolve("U2"); got != permission.Trusted {
		t.Errorf("Resolve(U2) = %v, want trusted", got)
	}
	if got := r.Resolve("U3"); got != permission.None {
		t.Errorf("Resolve(U3) = %v, want none", got)
	}
}

func TestResolveAdminWinsOverTrusted(t *testing.T) {
	r := permission.NewResolver([]string{"U1"}, []string{"U1"})

	if got := r.Resolve("U1"); got != permission.Admin {
		t.Errorf("Resolve(U1) = %v, want admin", got)
	}
}

func TestResolveNeverReturnsMax(t *testing.T) {
	r := permission.NewResolver([]string{"max"}, []string{"max"})

	if got := r.Resolve("max"); got == permission.Max {
		t.Error("Resolve must never return Max for a real identifier")
	}
}

func TestEffectiveTakesMaximum(t *testing.T) {
	r := permission.NewResolver([]string{"A1"}, []string{"G1"})

	tests := []struct {
		sender, chat string
		want         permission.Level
	}{
		{"U3", "G1", permission.Trusted}, // untrusted user in trusted group
		{"A1", "G1", permission.Admin},
		{"U3", "G2", permission.None},
		{"A1", "G2", permission.Admin},
	}

	for _, tt := range tests {
		if got := r.Effective(tt.sender, tt.chat); got != tt.want {
			t.Errorf("Effective(%q, %q) = %v, want %v", tt.sender, tt.chat, got, tt.want)
		}
	}
}

func TestLevelOrdering(t *testing.T) {
	if !(permission.None < permission.Trusted &&
		permission.Trusted < permission.Admin &&
		permission.Admin < permission.Max) {
		t.Error("levels must be totally ordered none < trusted < admin < max")
	}
}

func TestEmptyIdentifierIgnored(t *testing.T) {
	r := permission.NewResolver([]string{""}, []string{""})

	if got := r.Resolve(""); got != permission.None {
		t.Errorf("Resolve(\"\") = %v, want none", got)
	}
}
