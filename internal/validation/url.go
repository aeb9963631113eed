package validation

import (
	"net"
	"net/url"
	"strings"
)

// Hostnames that must never be fetched by the build pipeline, regardless of
// how they resolve.
var blockedHostnames = map[string]struct{}{
	"localhost":                    {},
	"metadata.google.internal":     {},
	"metadata.azure.com":           {},
	"instance-data":                {},
	"169.254.169.254":              {},
	"metadata.platformequinix.com": {},
}

var blockedHostSuffixes = []string{
	".local",
	".internal",
}

// CheckTargetURL validates the site URL a build will wrap: absolute, https
// only, and pointing at a public host. Loopback, RFC1918, link-local, and
// cloud metadata targets are rejected outright.
func CheckTargetURL(f FieldErrors, field, raw string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		f.Add(field, "is required")
		return
	}

	parsed, err := url.Parse(raw)
	if err != nil || !parsed.IsAbs() {
		f.Add(field, "must be an absolute URL")
		return
	}
	if parsed.Scheme != "https" {
		f.Add(field, "must use https")
		return
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		f.Add(field, "must include a hostname")
		return
	}
	if isBlockedHost(host) {
		f.Add(field, "hostname is not allowed")
	}
}

func isBlockedHost(host string) bool {
	if _, blocked := blockedHostnames[host]; blocked {
		return true
	}
	for _, suffix := range blockedHostSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	if ip := net.ParseIP(host); ip != nil {
		return isPrivateIP(ip)
	}
	return false
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}
