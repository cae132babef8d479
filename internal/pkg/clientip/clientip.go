// Package clientip resolves the originating client address of a request,
// looking through reverse-proxy headers before falling back to the socket
// address. Public ingestion usually sits behind a proxy, so the socket peer
// is rarely the real client.
package clientip

import (
	"net/netip"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// proxyHeaders are checked in order after X-Forwarded-For.
var proxyHeaders = []string{"X-Real-IP", "CF-Connecting-IP", "True-Client-IP"}

// FromRequest returns the client's public IP. Private, loopback, and
// link-local hops are skipped; when no public address is found the socket
// address is returned as-is so rate limiting still has a stable key.
func FromRequest(c *fiber.Ctx) string {
	if ip := firstPublic(strings.Split(c.Get(fiber.HeaderXForwardedFor), ",")); ip != "" {
		return ip
	}
	for _, header := range proxyHeaders {
		if ip := firstPublic([]string{c.Get(header)}); ip != "" {
			return ip
		}
	}
	return c.IP()
}

// firstPublic returns the first routable address among the raw candidates,
// preferring IPv4 over IPv6 when both appear.
func firstPublic(candidates []string) string {
	var v6 string
	for _, raw := range candidates {
		addr, ok := parseAddr(raw)
		if !ok || !isPublic(addr) {
			continue
		}
		if addr.Is4() {
			return addr.String()
		}
		if v6 == "" {
			v6 = addr.String()
		}
	}
	return v6
}

// parseAddr accepts bare addresses, addr:port, bracketed IPv6, and
// 4-in-6 mapped forms.
func parseAddr(raw string) (netip.Addr, bool) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"")
	if clean == "" {
		return netip.Addr{}, false
	}
	if ap, err := netip.ParseAddrPort(clean); err == nil {
		return ap.Addr().Unmap(), true
	}
	clean = strings.TrimSuffix(strings.TrimPrefix(clean, "["), "]")
	addr, err := netip.ParseAddr(clean)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func isPublic(addr netip.Addr) bool {
	return !(addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsUnspecified())
}
