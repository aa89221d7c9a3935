// Package i18n holds the user-facing message catalog and picks a locale from
// the Accept-Language header.
package i18n

import (
	"golang.org/x/text/language"
)

// Key identifies a message in the catalog.
type Key string

const (
	MsgRateLimited        Key = "rate_limited"
	MsgMalformedBody      Key = "malformed_body"
	MsgValidationFailed   Key = "validation_failed"
	MsgNotificationFailed Key = "notification_failed"
	MsgSuccessChecklist   Key = "success_checklist"
	MsgSuccessGuide       Key = "success_guide"
	MsgSuccessNatalChart  Key = "success_natal_chart"
	MsgMaterialDelayed    Key = "material_delayed"

	ErrRequired       Key = "required"
	ErrExpectedString Key = "expected_string"
	ErrExpectedBool   Key = "expected_bool"
	ErrNameTooShort   Key = "name_too_short"
	ErrNameTooLong    Key = "name_too_long"
	ErrEmailInvalid   Key = "email_invalid"
	ErrEmailTooLong   Key = "email_too_long"
	ErrConsentMissing Key = "consent_missing"
	ErrBirthDate      Key = "birth_date_invalid"
	ErrBirthTime      Key = "birth_time_format"
	ErrBirthPlace     Key = "birth_place_too_short"
	ErrBirthPlaceLong Key = "birth_place_too_long"
	ErrBirthInFuture  Key = "birth_in_future"

	LabelName        Key = "label_name"
	LabelEmail       Key = "label_email"
	LabelConsent     Key = "label_consent"
	LabelBirthDate   Key = "label_birth_date"
	LabelBirthTime   Key = "label_birth_time"
	LabelBirthPlace  Key = "label_birth_place"
	LabelYes         Key = "label_yes"
	LabelNo          Key = "label_no"
	LabelTimeUnknown Key = "label_time_unknown"
	TitleChecklist   Key = "title_checklist"
	TitleGuide       Key = "title_guide"
	TitleNatalChart  Key = "title_natal_chart"
)

var (
	Russian = language.Russian
	English = language.English
)

var catalog = map[language.Tag]map[Key]string{
	language.Russian: {
		MsgRateLimited:        "Превышен лимит запросов. Попробуйте позже",
		MsgMalformedBody:      "Некорректное тело запроса",
		MsgValidationFailed:   "Ошибка валидации",
		MsgNotificationFailed: "Не удалось обработать заявку. Попробуйте позже",
		MsgSuccessChecklist:   "Чек-лист отправлен на указанный email",
		MsgSuccessGuide:       "Гайд отправлен на указанный email",
		MsgSuccessNatalChart:  "Заявка на натальную карту принята. Разбор придёт на указанный email",
		MsgMaterialDelayed:    "Заявка принята. Письмо с материалами может прийти с задержкой",

		ErrRequired:       "Обязательное поле",
		ErrExpectedString: "Ожидается строка",
		ErrExpectedBool:   "Ожидается логическое значение",
		ErrNameTooShort:   "Минимум 2 символа",
		ErrNameTooLong:    "Имя слишком длинное",
		ErrEmailInvalid:   "Некорректный email",
		ErrEmailTooLong:   "Email слишком длинный",
		ErrConsentMissing: "Необходимо согласие",
		ErrBirthDate:      "Укажите дату рождения",
		ErrBirthTime:      "Формат ЧЧ:ММ",
		ErrBirthPlace:     "Укажите город",
		ErrBirthPlaceLong: "Название места слишком длинное",
		ErrBirthInFuture:  "Дата и время рождения не могут быть в будущем",

		LabelName:        "Имя",
		LabelEmail:       "Email",
		LabelConsent:     "Согласие",
		LabelBirthDate:   "Дата рождения",
		LabelBirthTime:   "Время рождения",
		LabelBirthPlace:  "Место рождения",
		LabelYes:         "да",
		LabelNo:          "нет",
		LabelTimeUnknown: "не указано",
		TitleChecklist:   "📋 Новый лид: Чек-лист",
		TitleGuide:       "📘 Новый лид: Гайд",
		TitleNatalChart:  "🔮 Новый лид: Натальная карта",
	},
	language.English: {
		MsgRateLimited:        "Too many requests. Please try again later",
		MsgMalformedBody:      "Invalid request body",
		MsgValidationFailed:   "Validation failed",
		MsgNotificationFailed: "Failed to process your request. Please try again later",
		MsgSuccessChecklist:   "The checklist has been sent to your email",
		MsgSuccessGuide:       "The guide has been sent to your email",
		MsgSuccessNatalChart:  "Your natal chart request has been received. The analysis will arrive by email",
		MsgMaterialDelayed:    "Your request has been received. The email with materials may arrive with a delay",

		ErrRequired:       "This field is required",
		ErrExpectedString: "Expected a string",
		ErrExpectedBool:   "Expected a boolean",
		ErrNameTooShort:   "At least 2 characters",
		ErrNameTooLong:    "Name is too long",
		ErrEmailInvalid:   "Invalid email address",
		ErrEmailTooLong:   "Email is too long",
		ErrConsentMissing: "Consent is required",
		ErrBirthDate:      "Enter your birth date",
		ErrBirthTime:      "Use HH:MM format",
		ErrBirthPlace:     "Enter your birth city",
		ErrBirthPlaceLong: "Birth place is too long",
		ErrBirthInFuture:  "Birth date and time cannot be in the future",

		LabelName:        "Name",
		LabelEmail:       "Email",
		LabelConsent:     "Consent",
		LabelBirthDate:   "Birth date",
		LabelBirthTime:   "Birth time",
		LabelBirthPlace:  "Birth place",
		LabelYes:         "yes",
		LabelNo:          "no",
		LabelTimeUnknown: "not specified",
		TitleChecklist:   "📋 New lead: Checklist",
		TitleGuide:       "📘 New lead: Guide",
		TitleNatalChart:  "🔮 New lead: Natal chart",
	},
}

var supported = []language.Tag{language.Russian, language.English}

var matcher = language.NewMatcher(supported)

// Negotiate picks the best supported locale for an Accept-Language header
// value. An empty or unparseable header yields fallback.
func Negotiate(acceptLanguage string, fallback language.Tag) language.Tag {
	if acceptLanguage == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return fallback
	}
	return supported[idx]
}

// Parse resolves a configured locale name ("ru", "en-US") to a supported tag.
func Parse(name string, fallback language.Tag) language.Tag {
	tag, err := language.Parse(name)
	if err != nil {
		return fallback
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return fallback
	}
	return supported[idx]
}

// T translates key into the given locale. Unknown locales fall back to
// Russian; unknown keys are returned verbatim.
func T(tag language.Tag, key Key) string {
	msgs, ok := catalog[tag]
	if !ok {
		msgs = catalog[language.Russian]
	}
	if msg, ok := msgs[key]; ok {
		return msg
	}
	return string(key)
}

// TList translates a list of keys, preserving order.
func TList(tag language.Tag, keys []Key) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, T(tag, k))
	}
	return out
}
