package reconcile

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeAddress(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		suffix   string
		expected string
	}{
		{
			name:     "SLAAC-style composition",
			prefix:   "2001:db8:1:2::",
			suffix:   "::ab:cd:ef:1",
			expected: "2001:db8:1:2:ab:cd:ef:1",
		},
		{
			name:     "Prefix low bits are discarded",
			prefix:   "2001:db8:1:2:ffff:ffff:ffff:ffff",
			suffix:   "::ab:cd:ef:1",
			expected: "2001:db8:1:2:ab:cd:ef:1",
		},
		{
			name:     "Suffix high bits are discarded",
			prefix:   "2001:db8:1:2::",
			suffix:   "fe80:1:2:3:ab:cd:ef:1",
			expected: "2001:db8:1:2:ab:cd:ef:1",
		},
		{
			name:     "All-zero suffix",
			prefix:   "2001:db8:1:2::",
			suffix:   "::",
			expected: "2001:db8:1:2::",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefix := netip.MustParseAddr(tt.prefix)
			suffix := netip.MustParseAddr(tt.suffix)

			merged := MergeAddress(prefix, suffix)
			assert.Equal(t, netip.MustParseAddr(tt.expected), merged)

			// The first 64 bits must come from the prefix and the last 64 from
			// the suffix, byte for byte
			m := merged.As16()
			p := prefix.As16()
			s := suffix.As16()
			assert.Equal(t, p[:8], m[:8])
			assert.Equal(t, s[8:], m[8:])
		})
	}
}

func TestMergeAddressDeterministic(t *testing.T) {
	prefix := netip.MustParseAddr("2001:db8:aaaa:bbbb::")
	suffix := netip.MustParseAddr("::1:2:3:4")

	first := MergeAddress(prefix, suffix)
	for range 10 {
		require.Equal(t, first, MergeAddress(prefix, suffix))
	}
}
