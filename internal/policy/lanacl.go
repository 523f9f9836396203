package policy

import (
	"net"
	"net/netip"
)

// lanPrefixes are the address ranges the kiosk server trusts. The service
// is LAN-only by contract; anything outside these ranges is refused at the
// HTTP layer.
var lanPrefixes = []netip.Prefix{
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// AllowLANRemoteAddr reports whether remoteAddr (host:port as seen on an
// http.Request) belongs to a loopback or private LAN range.
func AllowLANRemoteAddr(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range lanPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
