package api

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

// ErrInvalidIPv4 is returned for anything that is not a plain dotted-quad
// IPv4 address.
var ErrInvalidIPv4 = errors.New("invalid IPv4 address")

// ParseIPv4 trims raw and checks that it is four decimal octets in 0-255.
// IPv6, IPv4-mapped IPv6 and zoned addresses are rejected. It returns the
// canonical form.
func ParseIPv4(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidIPv4, raw)
	}
	if !addr.Is4() || addr.Zone() != "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidIPv4, raw)
	}
	return addr.String(), nil
}
