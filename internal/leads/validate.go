package leads

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/TrollHead15/AstroLiana/internal/i18n"
)

var jsonNull = []byte("null")

// Validate classifies raw as a malformed body (ErrMalformedBody), a
// *ValidationError, or a fully valid Submission. now is used only for
// cross-field date checks, which keeps the result a function of its inputs.
func (s *Schema) Validate(raw []byte, now time.Time) (Submission, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	vals := make(values, len(s.fields))
	for _, f := range s.fields {
		f.check(obj, vals, verr)
	}
	if !verr.empty() {
		return nil, verr
	}

	sub := s.build(vals)
	for _, check := range s.checks {
		if key := check(sub, now); key != "" {
			verr.Form = append(verr.Form, key)
		}
	}
	if !verr.empty() {
		return nil, verr
	}
	return sub, nil
}

// Validate looks up the schema for kind and validates raw against it.
func Validate(kind Kind, raw []byte, now time.Time) (Submission, error) {
	s, err := SchemaFor(kind)
	if err != nil {
		return nil, err
	}
	return s.Validate(raw, now)
}

func decodeObject(raw []byte) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: body is not an object", ErrMalformedBody)
	}
	return obj, nil
}

func (f field) check(obj map[string]json.RawMessage, vals values, verr *ValidationError) {
	raw, present := obj[f.name]
	if !present || bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		if !f.optional {
			verr.addField(f.name, i18n.ErrRequired)
		}
		return
	}

	switch f.typ {
	case boolField:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			verr.addField(f.name, i18n.ErrExpectedBool)
			return
		}
		if f.isTrue && !b {
			verr.addField(f.name, i18n.ErrConsentMissing)
			return
		}
		vals[f.name] = b

	case stringField:
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			verr.addField(f.name, i18n.ErrExpectedString)
			return
		}
		str = strings.TrimSpace(str)
		if str == "" {
			if !f.optional {
				verr.addField(f.name, i18n.ErrRequired)
			}
			return
		}
		failed := false
		for _, rule := range f.rules {
			if key := rule(str); key != "" {
				verr.addField(f.name, key)
				failed = true
			}
		}
		if failed {
			return
		}
		if f.convert != nil {
			v, key := f.convert(str)
			if key != "" {
				verr.addField(f.name, key)
				return
			}
			vals[f.name] = v
			return
		}
		vals[f.name] = str
	}
}
