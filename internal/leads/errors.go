package leads

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/TrollHead15/AstroLiana/internal/i18n"
)

var (
	// ErrMalformedBody is returned when the body is not a JSON object.
	ErrMalformedBody = errors.New("leads: malformed request body")

	// ErrUnknownKind is returned when no schema exists for a kind.
	ErrUnknownKind = errors.New("leads: unknown lead magnet kind")
)

// ValidationError lists every rule a payload violated. Fields maps the wire
// field name to its messages in rule order; Form holds cross-field problems.
type ValidationError struct {
	Fields map[string][]i18n.Key
	Form   []i18n.Key
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names)+len(e.Form))
	for _, name := range names {
		for _, k := range e.Fields[name] {
			parts = append(parts, fmt.Sprintf("%s: %s", name, k))
		}
	}
	for _, k := range e.Form {
		parts = append(parts, string(k))
	}
	return "leads: validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) addField(name string, key i18n.Key) {
	if e.Fields == nil {
		e.Fields = make(map[string][]i18n.Key)
	}
	e.Fields[name] = append(e.Fields[name], key)
}

func (e *ValidationError) empty() bool {
	return len(e.Fields) == 0 && len(e.Form) == 0
}
