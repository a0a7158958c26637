// Package faults defines the error taxonomy shared by the resolver, the
// preference reconciler and the services. Every fault is caught at an
// operation boundary and turned into status text; none is fatal.
package faults

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindAuthSession: the identity lookup itself failed.
	KindAuthSession Kind = iota + 1
	// KindProfileMissing: authenticated, but no profile row exists yet.
	KindProfileMissing
	// KindQuery: a store read or write returned an error.
	KindQuery
	// KindValidation: a local precondition failed before any store call.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindAuthSession:
		return "auth_session"
	case KindProfileMissing:
		return "profile_missing"
	case KindQuery:
		return "query"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// ProfileMissingMessage is shown when a signed-in identity has no profile row.
const ProfileMissingMessage = "Profile missing: no row found in `profiles` for this user. An admin must create it (or enable auto-create trigger)."

var (
	ErrForbidden = errors.New("forbidden")
	ErrNotFound  = errors.New("not found")
)

type Fault struct {
	Kind    Kind
	Message string
	Err     error
}

func (f *Fault) Error() string {
	return f.Message
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// Is matches another *Fault of the same kind, so errors.Is(err, &Fault{Kind: KindQuery}) works.
func (f *Fault) Is(target error) bool {
	t, ok := target.(*Fault)
	if !ok {
		return false
	}
	return t.Kind == f.Kind && (t.Message == "" || t.Message == f.Message)
}

func AuthSession(err error) *Fault {
	return &Fault{Kind: KindAuthSession, Message: fmt.Sprintf("Auth session error: %v", err), Err: err}
}

func ProfileMissing() *Fault {
	return &Fault{Kind: KindProfileMissing, Message: ProfileMissingMessage}
}

func Query(err error) *Fault {
	return &Fault{Kind: KindQuery, Message: fmt.Sprintf("Profile query error: %v", err), Err: err}
}

// QueryOn is Query for stores other than profiles.
func QueryOn(entity string, err error) *Fault {
	return &Fault{Kind: KindQuery, Message: fmt.Sprintf("%s query error: %v", entity, err), Err: err}
}

func Validation(msg string) *Fault {
	return &Fault{Kind: KindValidation, Message: msg}
}

// KindOf reports the fault kind carried anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return 0, false
}

func IsKind(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}
