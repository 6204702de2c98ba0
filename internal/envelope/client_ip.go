package envelope

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("2001:db8::/32"),
	netip.MustParsePrefix("::ffff:0:0/96"),
}

// ResolveClientIP picks the client address from the trust signals in order:
// the first public entry of X-Forwarded-For, X-Real-IP, Client-IP, then the
// peer address. Each candidate must be a routable public address. When none
// qualifies the raw peer host is returned.
func ResolveClientIP(header http.Header, remoteAddr string) string {
	for _, entry := range strings.Split(header.Get("X-Forwarded-For"), ",") {
		if ip, ok := publicIP(entry); ok {
			return ip
		}
	}

	for _, name := range []string{"X-Real-IP", "Client-IP"} {
		if ip, ok := publicIP(header.Get(name)); ok {
			return ip
		}
	}

	peer := peerHost(remoteAddr)
	if ip, ok := publicIP(peer); ok {
		return ip
	}

	return peer
}

// IsPublicIP reports whether candidate parses as a routable, non-reserved
// address.
func IsPublicIP(candidate string) bool {
	_, ok := publicIP(candidate)
	return ok
}

func publicIP(candidate string) (string, bool) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return "", false
	}

	addr, err := netip.ParseAddr(candidate)
	if err != nil {
		return "", false
	}
	if addr.Zone() != "" {
		return "", false
	}

	if addr.IsPrivate() || addr.IsLoopback() || addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() ||
		addr.IsMulticast() || addr.IsInterfaceLocalMulticast() {
		return "", false
	}

	for _, prefix := range reservedPrefixes {
		if prefix.Contains(addr) {
			return "", false
		}
	}

	return addr.String(), true
}

func peerHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
