package reconcile

import (
	"fmt"
	"net/netip"

	"github.com/dynsix/dynsix/pkg/dns"
)

// Action is the corrective action for a service's record
type Action int

const (
	// ActionNone means the record already holds the target address
	ActionNone Action = iota
	// ActionCreate means the record does not exist and must be created
	ActionCreate
	// ActionUpdate means the record exists but holds a different address
	ActionUpdate
)

// String implements fmt.Stringer
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	default:
		return "invalid"
	}
}

// Decide computes the corrective action for the target address given the
// provider's current observation of the record (nil when the record is absent)
// Only the record's first value is compared; any extra values are legacy and
// get overwritten by the update
func Decide(target netip.Addr, remote *dns.Record) (Action, error) {
	if remote == nil {
		return ActionCreate, nil
	}

	if len(remote.Values) == 0 {
		// A record with no values can't be compared against; overwrite it
		return ActionUpdate, nil
	}

	current, err := netip.ParseAddr(remote.Values[0])
	if err != nil {
		return ActionNone, fmt.Errorf("record holds a malformed address '%s': %w", remote.Values[0], err)
	}

	if current == target {
		return ActionNone, nil
	}

	return ActionUpdate, nil
}
