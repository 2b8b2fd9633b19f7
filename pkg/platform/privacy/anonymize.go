// Package privacy holds helpers that keep personal data out of logs.
package privacy

import (
	"net/netip"
)

// AnonymizeIP truncates an address to its network: /24 for IPv4, /48 for
// IPv6. "unknown" is returned for empty input and "invalid" for input that
// does not parse.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap()

	bits := 48
	if addr.Is4() {
		bits = 24
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.Addr().String()
}
