// Package device parses the User-Agent into a short device description so
// audit events can record where a verification or token action came from.
package device

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"github.com/ip-fomin/LaborX-backend/pkg/requestcontext"
)

// Middleware parses the User-Agent header and stores a "Browser x.y on OS"
// summary in the context. Unparseable agents produce an empty device.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		summary := Describe(r.Header.Get("User-Agent"))
		ctx := requestcontext.WithDevice(r.Context(), summary)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Describe renders a compact human-readable device summary from a raw
// User-Agent string.
func Describe(rawUA string) string {
	if rawUA == "" {
		return ""
	}
	ua := useragent.New(rawUA)
	name, version := ua.Browser()
	if name == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString(name)
	if version != "" {
		b.WriteString(" ")
		b.WriteString(version)
	}
	if os := ua.OS(); os != "" {
		b.WriteString(" on ")
		b.WriteString(os)
	}
	if ua.Mobile() {
		b.WriteString(" (mobile)")
	}
	return b.String()
}
