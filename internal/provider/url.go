package provider

import (
	"net/url"
	"slices"
)

// IsHTTPS reports whether rawURL uses the https scheme.
func IsHTTPS(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Scheme == "https"
}

// IsAllowedHTTP reports whether rawURL uses plain http against an allowed
// host. A nil allowedHosts permits any host. Hosts are compared as host[:port].
func IsAllowedHTTP(rawURL string, allowedHosts []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "http" {
		return false
	}
	if allowedHosts == nil {
		return true
	}
	return slices.Contains(allowedHosts, u.Host)
}

// urlPermitted applies the request gate used by RestClient.
func urlPermitted(rawURL string, requireHTTPS bool, allowedHosts []string) bool {
	if IsHTTPS(rawURL) {
		return true
	}
	if requireHTTPS {
		return false
	}
	return IsAllowedHTTP(rawURL, allowedHosts)
}
