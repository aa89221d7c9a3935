package leads

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/TrollHead15/AstroLiana/internal/i18n"
)

const (
	NameMinLength       = 2
	NameMaxLength       = 100
	EmailMaxLength      = 254
	BirthPlaceMinLength = 3
	BirthPlaceMaxLength = 200

	// futureSlack tolerates the widest timezone offset, since birth times are
	// local to the birth place and the place's zone is unknown here.
	futureSlack = 14 * time.Hour
)

type fieldType int

const (
	stringField fieldType = iota
	boolField
)

// field declares how one wire field is checked. Strings are trimmed before
// any rule runs. Every rule is evaluated so a field may carry several
// messages. convert turns the checked string into its typed value.
type field struct {
	name     string
	typ      fieldType
	optional bool
	rules    []func(string) i18n.Key
	convert  func(string) (any, i18n.Key)
	isTrue   bool
}

type formCheck func(sub Submission, now time.Time) i18n.Key

// Schema is the declarative rule set for one lead magnet kind.
type Schema struct {
	kind   Kind
	fields []field
	checks []formCheck
	build  func(v values) Submission
}

type values map[string]any

func (v values) str(name string) string {
	s, _ := v[name].(string)
	return s
}

func (v values) boolean(name string) bool {
	b, _ := v[name].(bool)
	return b
}

// Kind returns the lead magnet kind this schema validates.
func (s *Schema) Kind() Kind { return s.kind }

var contactFields = []field{
	{
		name:  "name",
		typ:   stringField,
		rules: []func(string) i18n.Key{minRunes(NameMinLength, i18n.ErrNameTooShort), maxRunes(NameMaxLength, i18n.ErrNameTooLong)},
	},
	{
		name:  "email",
		typ:   stringField,
		rules: []func(string) i18n.Key{maxBytes(EmailMaxLength, i18n.ErrEmailTooLong), emailAddress},
	},
	{
		name:   "consent",
		typ:    boolField,
		isTrue: true,
	},
}

func contactFrom(v values) Contact {
	return Contact{
		Name:    v.str("name"),
		Email:   v.str("email"),
		Consent: v.boolean("consent"),
	}
}

var schemas = map[Kind]*Schema{
	KindChecklist: {
		kind:   KindChecklist,
		fields: contactFields,
		build: func(v values) Submission {
			return ChecklistSubmission{Contact: contactFrom(v)}
		},
	},
	KindGuide: {
		kind:   KindGuide,
		fields: contactFields,
		build: func(v values) Submission {
			return GuideSubmission{Contact: contactFrom(v)}
		},
	},
	KindNatalChart: {
		kind: KindNatalChart,
		fields: append(append([]field{}, contactFields...),
			field{
				name:    "birthDate",
				typ:     stringField,
				convert: parseBirthDate,
			},
			field{
				name:     "birthTime",
				typ:      stringField,
				optional: true,
				convert:  parseBirthTime,
			},
			field{
				name:  "birthPlace",
				typ:   stringField,
				rules: []func(string) i18n.Key{minRunes(BirthPlaceMinLength, i18n.ErrBirthPlace), maxRunes(BirthPlaceMaxLength, i18n.ErrBirthPlaceLong)},
			},
		),
		checks: []formCheck{birthNotInFuture},
		build: func(v values) Submission {
			sub := NatalChartSubmission{
				Contact:    contactFrom(v),
				BirthPlace: v.str("birthPlace"),
			}
			sub.BirthDate, _ = v["birthDate"].(time.Time)
			if t, ok := v["birthTime"].(ClockTime); ok {
				sub.BirthTime = t
				sub.BirthTimeKnown = true
			}
			return sub
		},
	},
}

// SchemaFor returns the schema for kind.
func SchemaFor(kind Kind) (*Schema, error) {
	s, ok := schemas[kind]
	if !ok {
		return nil, ErrUnknownKind
	}
	return s, nil
}

func minRunes(n int, key i18n.Key) func(string) i18n.Key {
	return func(s string) i18n.Key {
		if utf8.RuneCountInString(s) < n {
			return key
		}
		return ""
	}
}

func maxRunes(n int, key i18n.Key) func(string) i18n.Key {
	return func(s string) i18n.Key {
		if utf8.RuneCountInString(s) > n {
			return key
		}
		return ""
	}
}

func maxBytes(n int, key i18n.Key) func(string) i18n.Key {
	return func(s string) i18n.Key {
		if len(s) > n {
			return key
		}
		return ""
	}
}

// emailAddress accepts a bare addr-spec whose domain has at least one dot.
func emailAddress(s string) i18n.Key {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Name != "" || addr.Address != s {
		return i18n.ErrEmailInvalid
	}
	at := strings.LastIndexByte(s, '@')
	domain := s[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return i18n.ErrEmailInvalid
	}
	return ""
}

var birthDateLayouts = []string{"2006-01-02", time.RFC3339Nano, time.RFC3339}

// parseBirthDate keeps only the calendar date as written on the wire.
func parseBirthDate(s string) (any, i18n.Key) {
	for _, layout := range birthDateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), ""
	}
	return nil, i18n.ErrBirthDate
}

func parseBirthTime(s string) (any, i18n.Key) {
	t, ok := ParseClockTime(s)
	if !ok {
		return nil, i18n.ErrBirthTime
	}
	return t, ""
}

func birthNotInFuture(sub Submission, now time.Time) i18n.Key {
	natal, ok := sub.(NatalChartSubmission)
	if !ok {
		return ""
	}
	if natal.BirthMoment().After(now.UTC().Add(futureSlack)) {
		return i18n.ErrBirthInFuture
	}
	return ""
}
