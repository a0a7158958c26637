package faults

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestConstructors(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name     string
		fault    *Fault
		kind     Kind
		contains string
	}{
		{"auth session", AuthSession(cause), KindAuthSession, "Auth session error: connection refused"},
		{"profile missing", ProfileMissing(), KindProfileMissing, "An admin must create it"},
		{"query", Query(cause), KindQuery, "Profile query error: connection refused"},
		{"query on", QueryOn("Project", cause), KindQuery, "Project query error"},
		{"validation", Validation("Project name must be at least 2 characters."), KindValidation, "at least 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.fault.Kind != tt.kind {
				t.Errorf("Kind = %v, expected %v", tt.fault.Kind, tt.kind)
			}
			if !strings.Contains(tt.fault.Error(), tt.contains) {
				t.Errorf("Error() = %q, expected to contain %q", tt.fault.Error(), tt.contains)
			}
		})
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("save prefs: %w", Query(errors.New("timeout")))

	kind, ok := KindOf(err)
	if !ok || kind != KindQuery {
		t.Errorf("KindOf() = %v, %v; expected query, true", kind, ok)
	}
	if !IsKind(err, KindQuery) {
		t.Error("IsKind should see through wrapping")
	}
	if IsKind(err, KindValidation) {
		t.Error("IsKind should not match a different kind")
	}
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("plain errors carry no kind")
	}
}

func TestFault_IsAndUnwrap(t *testing.T) {
	cause := errors.New("db down")
	err := Query(cause)

	if !errors.Is(err, cause) {
		t.Error("fault should unwrap to its cause")
	}
	if !errors.Is(err, &Fault{Kind: KindQuery}) {
		t.Error("fault should match a kind-only target")
	}
	if errors.Is(err, &Fault{Kind: KindAuthSession}) {
		t.Error("fault should not match another kind")
	}
}

func TestKindString(t *testing.T) {
	if KindProfileMissing.String() != "profile_missing" {
		t.Errorf("String() = %q", KindProfileMissing.String())
	}
	if Kind(99).String() != "unknown" {
		t.Errorf("String() = %q, expected unknown", Kind(99).String())
	}
}
