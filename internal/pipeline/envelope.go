package pipeline

import (
	"golang.org/x/text/language"

	"github.com/TrollHead15/AstroLiana/internal/i18n"
	"github.com/TrollHead15/AstroLiana/internal/leads"
)

// Envelope is the JSON response body.
type Envelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Errors  *ErrorDetail `json:"errors,omitempty"`
}

// ErrorDetail carries localized validation messages. Both members are always
// present so clients can index them without nil checks.
type ErrorDetail struct {
	FieldErrors map[string][]string `json:"fieldErrors"`
	FormErrors  []string            `json:"formErrors"`
}

func failure(locale language.Tag, key i18n.Key) Envelope {
	return Envelope{Success: false, Message: i18n.T(locale, key)}
}

func validationFailure(locale language.Tag, verr *leads.ValidationError) Envelope {
	detail := &ErrorDetail{
		FieldErrors: make(map[string][]string, len(verr.Fields)),
		FormErrors:  i18n.TList(locale, verr.Form),
	}
	for name, keys := range verr.Fields {
		detail.FieldErrors[name] = i18n.TList(locale, keys)
	}
	env := failure(locale, i18n.MsgValidationFailed)
	env.Errors = detail
	return env
}
