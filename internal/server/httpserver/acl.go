package httpserver

import (
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
)

// NetworkACLConfig configures NetworkACL.
type NetworkACLConfig struct {
	// AllowList holds IPs and CIDRs. Empty allows every client.
	AllowList []string

	// Logger reports skipped entries and denied requests. Optional.
	Logger *slog.Logger
}

// allowList is a set of prefixes; a bare IP is stored as a full-length
// prefix.
type allowList []netip.Prefix

func parseAllowList(entries []string, logger *slog.Logger) allowList {
	var out allowList
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)

		var (
			p   netip.Prefix
			err error
		)
		if strings.Contains(entry, "/") {
			p, err = netip.ParsePrefix(entry)
			p = p.Masked()
		} else {
			var a netip.Addr
			if a, err = netip.ParseAddr(entry); err == nil {
				p = netip.PrefixFrom(a, a.BitLen())
			}
		}
		if err != nil {
			if logger != nil {
				logger.Warn("skipping invalid allow list entry", "entry", entry, "error", err)
			}
			continue
		}
		out = append(out, p)
	}
	return out
}

func (l allowList) contains(ip string) bool {
	a, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	a = a.Unmap()
	for _, p := range l {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

// NetworkACL rejects clients outside the allow list with 403. Invalid
// entries are skipped; a list with no valid entry allows everyone.
func NetworkACL(cfg *NetworkACLConfig) Middleware {
	allowed := parseAllowList(cfg.AllowList, cfg.Logger)

	return func(next http.Handler) http.Handler {
		if len(allowed) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := getClientIP(r)
			if allowed.contains(ip) {
				next.ServeHTTP(w, r)
				return
			}
			if cfg.Logger != nil {
				cfg.Logger.Warn("admin request denied", "client_ip", ip, "path", r.URL.Path)
			}
			writeError(w, http.StatusForbidden, "MESH-ADMIN-4031", "client not in allow list")
		})
	}
}
