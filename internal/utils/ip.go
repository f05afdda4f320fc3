package utils

import "net"

// IsIPv4 reports whether s is a dotted-quad IPv4 address.
func IsIPv4(s string) bool {
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() != nil
}

// IsDottedMask reports whether s is a contiguous IPv4 netmask in dotted
// form, e.g. "255.255.255.0".
func IsDottedMask(s string) bool {
	ip := net.ParseIP(s)
	if ip == nil {
		return false
	}
	v4 := ip.To4()
	if v4 == nil {
		return false
	}
	ones, bits := net.IPMask(v4).Size()
	return bits == 32 && (ones > 0 || v4.Equal(net.IPv4zero.To4()))
}

// PrefixLen converts a dotted mask to its prefix length. Returns -1 for
// anything that is not a contiguous IPv4 mask.
func PrefixLen(mask string) int {
	ip := net.ParseIP(mask)
	if ip == nil {
		return -1
	}
	v4 := ip.To4()
	if v4 == nil {
		return -1
	}
	ones, bits := net.IPMask(v4).Size()
	if bits != 32 {
		return -1
	}
	if ones == 0 && !v4.Equal(net.IPv4zero.To4()) {
		return -1
	}
	return ones
}
