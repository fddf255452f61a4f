// Package resolver turns a user-supplied "host[:port]" upstream address
// into a dialable "host:port" string, following Minecraft's own SRV-first
// resolution order.
package resolver

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DefaultPort is used when input carries no explicit port.
const DefaultPort = 25565

// ParseHostPort splits "host[:port]" into its parts, defaulting the port
// when absent. A trailing ":NNN" is only treated as a port if it parses as
// one and the host itself doesn't look like a bare IPv6 literal (which
// would itself contain ':' or ']').
func ParseHostPort(input string, defaultPort uint16) (host string, port uint16) {
	if idx := strings.LastIndex(input, ":"); idx >= 0 {
		candidateHost, candidatePort := input[:idx], input[idx+1:]
		if p, err := strconv.ParseUint(candidatePort, 10, 16); err == nil &&
			!strings.Contains(candidateHost, "]") && !strings.Contains(candidateHost, ":") {
			return candidateHost, uint16(p)
		}
	}
	return input, defaultPort
}

// Resolve implements the resolution precedence: literal IP first, then
// "_minecraft._tcp.<host>" SRV, then a plain A/AAAA lookup on host using
// the parsed (or default) port.
func Resolve(ctx context.Context, input string) (string, error) {
	host, port := ParseHostPort(input, DefaultPort)

	if ip := net.ParseIP(host); ip != nil {
		return net.JoinHostPort(host, strconv.Itoa(int(port))), nil
	}

	r := net.DefaultResolver
	if _, srvRecords, err := r.LookupSRV(ctx, "minecraft", "tcp", host); err == nil && len(srvRecords) > 0 {
		target := strings.TrimSuffix(srvRecords[0].Target, ".")
		if addrs, err := r.LookupHost(ctx, target); err == nil && len(addrs) > 0 {
			return net.JoinHostPort(addrs[0], strconv.Itoa(int(srvRecords[0].Port))), nil
		}
	}

	addrs, err := r.LookupHost(ctx, host)
	if err != nil {
		return "", fmt.Errorf("resolver: looking up %q: %w", host, err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("resolver: no addresses found for %q", host)
	}
	return net.JoinHostPort(addrs[0], strconv.Itoa(int(port))), nil
}
