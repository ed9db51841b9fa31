// Package permission maps user and chat identifiers to ordinal trust
// levels from static allow-lists.
package permission

// Level is an ordinal trust tier. Comparison is by ordinal.
type Level int

// Trust levels, lowest to highest.
const (
	// None - Identifier appears on no allow-list.
	None Level = iota

	// Trusted - Identifier appears on the trusted allow-list.
	Trusted

	// Admin - Identifier appears on the admin allow-list.
	Admin

	// Max is never assignable to a real identifier. A command gated at
	// Max is permanently unreachable; it exists for internal testing.
	Max
)

// String returns a string representation of the level.
func (l Level) String() string {
	switch l {
	case None:
		return "none"
	case Trusted:
		return "trusted"
	case Admin:
		return "admin"
	case Max:
		return "max"
	default:
		return "unknown"
	}
}

// Resolver resolves identifiers against static allow-lists.
// It is immutable after construction and safe for concurrent use.
type Resolver struct {
	admins  map[string]struct{}
	trusted map[string]struct{}
}

// NewResolver builds a resolver from admin and trusted identifier lists.
func NewResolver(admins, trusted []string) *Resolver {
	r := &Resolver{
		admins:  make(map[string]struct{}, len(admins)),
		trusted: make(map[string]struct{}, len(trusted)),
	}
	for _, id := range admins {
		if id != "" {
			r.admins[id] = struct{}{}
		}
	}
	for _, id := range trusted {
		if id != "" {
			r.trusted[id] = struct{}{}
		}
	}
	return r
}

// Resolve returns the level for an identifier. Admin wins over trusted;
// absence yields None. Max is never returned.
func (r *Resolver) Resolve(id string) Level {
	if _, ok := r.admins[id]; ok {
		return Admin
	}
	if _, ok := r.trusted[id]; ok {
		return Trusted
	}
	return None
}

// Effective returns the higher of the sender and chat levels, so a user
// who is untrusted individually inherits the level of a trusted chat.
func (r *Resolver) Effective(sender, chat string) Level {
	s := r.Resolve(sender)
	if c := r.Resolve(chat); c > s {
		return c
	}
	return s
}
