package focus

import (
	"fmt"
	"strconv"
	"strings"
)

// ScopeKind is the dimension a scope focuses in.
type ScopeKind uint8

const (
	// SamplePrimary is the spot dimension of one analysed sample.
	SamplePrimary ScopeKind = iota + 1
	// SampleSecondary is the mobility dimension of one analysed sample.
	SampleSecondary
	// AlignmentPrimary is the spot dimension of one alignment result.
	AlignmentPrimary
	// AlignmentSecondary is the mobility dimension of one alignment result.
	AlignmentSecondary
)

var scopeKindNames = map[ScopeKind]string{
	SamplePrimary:      "sample/primary",
	SampleSecondary:    "sample/secondary",
	AlignmentPrimary:   "alignment/primary",
	AlignmentSecondary: "alignment/secondary",
}

func (k ScopeKind) String() string {
	if name, ok := scopeKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("scope(%d)", uint8(k))
}

// ParseScopeKind parses names like "sample/primary".
func ParseScopeKind(s string) (ScopeKind, error) {
	for k, name := range scopeKindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown scope kind %q", s)
}

// Secondary reports whether k is a mobility dimension.
func (k ScopeKind) Secondary() bool {
	return k == SampleSecondary || k == AlignmentSecondary
}

// Alignment reports whether k belongs to an alignment result.
func (k ScopeKind) Alignment() bool {
	return k == AlignmentPrimary || k == AlignmentSecondary
}

// Scope is the opaque token that selects one FocusState: a sample or
// alignment ID plus the dimension.
type Scope struct {
	Kind  ScopeKind
	Owner int32
}

// SampleScope returns the primary or secondary scope of a sample.
func SampleScope(sample int32, secondary bool) Scope {
	if secondary {
		return Scope{Kind: SampleSecondary, Owner: sample}
	}
	return Scope{Kind: SamplePrimary, Owner: sample}
}

// AlignmentScope returns the primary or secondary scope of an alignment.
func AlignmentScope(alignment int32, secondary bool) Scope {
	if secondary {
		return Scope{Kind: AlignmentSecondary, Owner: alignment}
	}
	return Scope{Kind: AlignmentPrimary, Owner: alignment}
}

// String renders the scope as "sample:3/primary".
func (s Scope) String() string {
	family, dim, _ := strings.Cut(s.Kind.String(), "/")
	return fmt.Sprintf("%s:%d/%s", family, s.Owner, dim)
}

// ParseScope parses the String form.
func ParseScope(s string) (Scope, error) {
	family, rest, ok := strings.Cut(s, ":")
	if !ok {
		return Scope{}, fmt.Errorf("scope %q: missing ':'", s)
	}
	owner, dim, ok := strings.Cut(rest, "/")
	if !ok {
		return Scope{}, fmt.Errorf("scope %q: missing '/'", s)
	}
	kind, err := ParseScopeKind(family + "/" + dim)
	if err != nil {
		return Scope{}, fmt.Errorf("scope %q: %w", s, err)
	}
	n, err := strconv.ParseInt(owner, 10, 32)
	if err != nil || n < 0 {
		return Scope{}, fmt.Errorf("scope %q: invalid owner %q", s, owner)
	}
	return Scope{Kind: kind, Owner: int32(n)}, nil
}

// Less orders scopes by owner family, owner, then dimension.
func (s Scope) Less(other Scope) bool {
	if s.Kind.Alignment() != other.Kind.Alignment() {
		return !s.Kind.Alignment()
	}
	if s.Owner != other.Owner {
		return s.Owner < other.Owner
	}
	return s.Kind < other.Kind
}
