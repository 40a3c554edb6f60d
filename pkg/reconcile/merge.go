// Package reconcile computes target addresses for services and brings their
// AAAA records in line with them.
package reconcile

import "net/netip"

// MergeAddress combines the routed prefix of an IPv6 address with the
// interface identifier of another: the first 64 bits of the result come from
// prefix, the last 64 bits from suffix
// This mirrors SLAAC-style address composition, except the interface
// identifier is operator-assigned rather than derived from the hardware
func MergeAddress(prefix netip.Addr, suffix netip.Addr) netip.Addr {
	p := prefix.As16()
	s := suffix.As16()

	var out [16]byte
	copy(out[:8], p[:8])
	copy(out[8:], s[8:])

	return netip.AddrFrom16(out)
}
