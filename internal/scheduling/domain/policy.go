package domain

import "fmt"

// PolicyKind is the persisted name of a capacity policy.
type PolicyKind string

const (
	PolicyExclusive PolicyKind = "exclusive"
	PolicyShared    PolicyKind = "shared"
)

// CapacityPolicy decides whether a slot time can take another booking.
type CapacityPolicy interface {
	Kind() PolicyKind
	// IsAvailable reports whether a booking may be added given the number
	// of active occupants already at the time.
	IsAvailable(occupants int) bool
	// StorageEnforced reports whether the booking store guarantees the
	// policy with a uniqueness constraint.
	StorageEnforced() bool
}

// ExclusivePolicy admits at most one active booking per closer and time.
type ExclusivePolicy struct{}

func (ExclusivePolicy) Kind() PolicyKind               { return PolicyExclusive }
func (ExclusivePolicy) IsAvailable(occupants int) bool { return occupants == 0 }
func (ExclusivePolicy) StorageEnforced() bool          { return true }

// SharedPolicy has no ceiling; occupancy is informational.
type SharedPolicy struct{}

func (SharedPolicy) Kind() PolicyKind      { return PolicyShared }
func (SharedPolicy) IsAvailable(int) bool  { return true }
func (SharedPolicy) StorageEnforced() bool { return false }

// PolicyFor returns the policy implementation for a persisted kind.
func PolicyFor(kind PolicyKind) (CapacityPolicy, error) {
	switch kind {
	case PolicyExclusive:
		return ExclusivePolicy{}, nil
	case PolicyShared:
		return SharedPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown capacity policy %q", kind)
	}
}
