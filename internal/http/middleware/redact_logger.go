// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the production access log. It never
// logs bodies, masks credential headers outright and replaces ids, email
// addresses and phone numbers found in paths, queries and other headers.
package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// RedactOptions configures RedactingLogger.
type RedactOptions struct {
	// MaskHeaders are replaced with "[REDACTED]" in addition to
	// Authorization, Cookie and Set-Cookie. Case-insensitive.
	MaskHeaders []string
}

// UUIDs are matched before phone numbers, whose pattern would otherwise eat
// the digit groups of an id.
var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

type scrubber struct {
	mask map[string]struct{}
}

func newScrubber(opts RedactOptions) *scrubber {
	s := &scrubber{mask: map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			s.mask[h] = struct{}{}
		}
	}
	return s
}

// scrub is a no-op on a nil scrubber.
func (s *scrubber) scrub(v string) string {
	if s == nil || v == "" {
		return v
	}
	v = uuidRE.ReplaceAllString(v, "[REDACTED:id]")
	v = emailRE.ReplaceAllString(v, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(v, "[REDACTED:phone]")
}

func (s *scrubber) headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := s.mask[strings.ToLower(k)]; ok {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = s.scrub(strings.Join(vv, ", "))
	}
	return out
}

// RedactingLogger is Logger with scrubbing applied and the client IP, user
// agent and referer left out. Masked request headers are logged as
// "[REDACTED]"; the rest are scrubbed.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	return accessLog(newScrubber(opts))
}
