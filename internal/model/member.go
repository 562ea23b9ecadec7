package model

type LookupStatus int

const (
	LookupFailed LookupStatus = iota
	LookupFound
	LookupNotFound
)

func (s LookupStatus) String() string {
	switch s {
	case LookupFound:
		return "found"
	case LookupNotFound:
		return "not_found"
	default:
		return "failed"
	}
}

// MemberLookup is the outcome of resolving a Discord user against the
// community guild. Username and Premium are only meaningful when Status is
// LookupFound.
type MemberLookup struct {
	Status   LookupStatus
	Username string
	Premium  bool
}

func (l MemberLookup) Found() bool {
	return l.Status == LookupFound
}
