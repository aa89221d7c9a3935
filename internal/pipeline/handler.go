package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/TrollHead15/AstroLiana/internal/i18n"
	"github.com/TrollHead15/AstroLiana/internal/leads"
	"github.com/TrollHead15/AstroLiana/internal/ratelimit"
)

// MaxBodyBytes caps the size of a submission body.
const MaxBodyBytes = 64 << 10

// Handler returns the HTTP handler for kind. It panics if kind has no
// descriptor, which New already rules out for every known kind.
func (p *Pipeline) Handler(kind leads.Kind) http.HandlerFunc {
	if _, ok := p.descriptors[kind]; !ok {
		panic(fmt.Sprintf("pipeline: no descriptor for %s", kind))
	}
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))

		out := p.Process(r.Context(), kind, Request{
			Identifier: ratelimit.ClientIdentifier(r),
			Body:       body,
			BodyErr:    err,
			Locale:     i18n.Negotiate(r.Header.Get("Accept-Language"), p.defaultLocale),
		})

		ratelimit.WriteHeaders(w.Header(), out.Decision, p.clock())
		writeJSON(w, out.Status, out.Envelope)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
