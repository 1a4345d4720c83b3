// Package security holds the HTTP hardening middleware: response headers,
// client IP extraction, suspicious request detection and Basic auth.
package security

import (
	"net/http"
	"strconv"
	"strings"
)

// Directive is one Content-Security-Policy directive.
type Directive struct {
	Name    string
	Sources []string
}

// HeaderPolicy describes the headers attached to every response.
type HeaderPolicy struct {
	CSP []Directive
	// Static headers, sent as-is when non-empty.
	Static map[string]string
	// HSTSMaxAge is sent only on TLS connections. Zero disables HSTS.
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
}

// DefaultHeaderPolicy is the policy for the dashboard and the render
// endpoints. Rendered invoices carry inline styles and data: logos.
func DefaultHeaderPolicy() HeaderPolicy {
	return HeaderPolicy{
		CSP: []Directive{
			{"default-src", []string{"'self'"}},
			{"script-src", []string{"'self'", "https://unpkg.com"}},
			{"style-src", []string{"'self'", "'unsafe-inline'"}},
			{"img-src", []string{"'self'", "data:", "https:"}},
			{"connect-src", []string{"'self'"}},
			{"object-src", []string{"'none'"}},
			{"frame-ancestors", []string{"'none'"}},
			{"base-uri", []string{"'self'"}},
			{"form-action", []string{"'self'"}},
		},
		Static: map[string]string{
			"X-Content-Type-Options":       "nosniff",
			"X-Frame-Options":              "DENY",
			"Referrer-Policy":              "strict-origin-when-cross-origin",
			"Permissions-Policy":           "geolocation=(), microphone=(), camera=(), payment=()",
			"Cross-Origin-Opener-Policy":   "same-origin",
			"Cross-Origin-Resource-Policy": "same-origin",
		},
		HSTSMaxAge:            365 * 24 * 60 * 60,
		HSTSIncludeSubdomains: true,
	}
}

// ContentSecurityPolicy renders the CSP header value.
func (p HeaderPolicy) ContentSecurityPolicy() string {
	parts := make([]string, 0, len(p.CSP))
	for _, d := range p.CSP {
		if len(d.Sources) == 0 {
			parts = append(parts, d.Name)
			continue
		}
		parts = append(parts, d.Name+" "+strings.Join(d.Sources, " "))
	}
	return strings.Join(parts, "; ")
}

func (p HeaderPolicy) hsts() string {
	if p.HSTSMaxAge <= 0 {
		return ""
	}
	v := "max-age=" + strconv.Itoa(p.HSTSMaxAge)
	if p.HSTSIncludeSubdomains {
		v += "; includeSubDomains"
	}
	return v
}

// Headers returns middleware applying the policy. Header values are
// computed once.
func Headers(p HeaderPolicy) func(http.Handler) http.Handler {
	fixed := make(http.Header, len(p.Static)+1)
	for k, v := range p.Static {
		if v != "" {
			fixed.Set(k, v)
		}
	}
	if csp := p.ContentSecurityPolicy(); csp != "" {
		fixed.Set("Content-Security-Policy", csp)
	}
	hsts := p.hsts()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for k, v := range fixed {
				h[k] = v
			}
			if r.TLS != nil && hsts != "" {
				h.Set("Strict-Transport-Security", hsts)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CacheFor marks responses cacheable by any cache for maxAge seconds.
func CacheFor(maxAge int) func(http.Handler) http.Handler {
	value := "public, max-age=" + strconv.Itoa(maxAge)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxAge > 0 {
				w.Header().Set("Cache-Control", value)
			}
			next.ServeHTTP(w, r)
		})
	}
}
