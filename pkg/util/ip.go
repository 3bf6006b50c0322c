package util

import (
	"net"
	"strings"
)

// IsPrivateIP reports whether addr is a parseable address in RFC 1918 / RFC 4193
// space. An address with a prefix length ("10.1.1.1/24") is accepted.
func IsPrivateIP(addr string) bool {
	if i := strings.IndexByte(addr, '/'); i >= 0 {
		addr = addr[:i]
	}
	ip := net.ParseIP(strings.TrimSpace(addr))
	if ip == nil {
		return false
	}
	return ip.IsPrivate()
}

// IsValidIPv4 checks if a string is a valid IPv4 address
func IsValidIPv4(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	return ip != nil && ip.To4() != nil
}

// ReverseName returns the in-addr.arpa / ip6.arpa name for an address, or ""
// when ipStr is not an IP address.
func ReverseName(ipStr string) string {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return ""
	}
	if v4 := ip.To4(); v4 != nil {
		return net.IPv4(v4[3], v4[2], v4[1], v4[0]).String() + ".in-addr.arpa."
	}
	const hex = "0123456789abcdef"
	buf := make([]byte, 0, 72)
	for i := len(ip) - 1; i >= 0; i-- {
		buf = append(buf, hex[ip[i]&0x0f], '.', hex[ip[i]>>4], '.')
	}
	return string(buf) + "ip6.arpa."
}
