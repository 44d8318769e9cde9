package netutil

import "net"

// GetLANIP returns the first non-loopback IPv4 address outside the CGNAT
// range used by overlay VPNs.
func GetLANIP() string {
	return firstIPv4(func(ip net.IP) bool { return !isCGNAT(ip) })
}

func firstIPv4(accept func(net.IP) bool) string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.IsLoopback() || ip.To4() == nil {
				continue
			}
			if accept(ip.To4()) {
				return ip.String()
			}
		}
	}
	return ""
}

// isCGNAT reports whether ip is in 100.64.0.0/10.
func isCGNAT(ip net.IP) bool {
	v4 := ip.To4()
	return v4 != nil && v4[0] == 100 && v4[1] >= 64 && v4[1] <= 127
}
