package pipeline

import (
	"errors"
	"fmt"

	"github.com/TrollHead15/AstroLiana/internal/fulfillment"
	"github.com/TrollHead15/AstroLiana/internal/i18n"
	"github.com/TrollHead15/AstroLiana/internal/leads"
	"github.com/TrollHead15/AstroLiana/internal/notify"
)

// DefaultBirthTime is used for natal chart leads that did not give a birth
// time. The notification marks such times as unspecified.
var DefaultBirthTime = leads.ClockTime{Hour: 12, Minute: 0}

// birthDateLayout is how birth dates are shown to the site owner.
const birthDateLayout = "02.01.2006"

// Descriptor holds everything that differs between lead kinds.
type Descriptor struct {
	Kind           leads.Kind
	Schema         *leads.Schema
	Summary        func(leads.Submission) notify.Summary
	Fulfillment    func(leads.Submission) fulfillment.Request
	AnalyticsLabel string
	SuccessMessage i18n.Key
}

func (d Descriptor) validate() error {
	switch {
	case d.Schema == nil:
		return errors.New("missing schema")
	case d.Schema.Kind() != d.Kind:
		return fmt.Errorf("schema is for %s", d.Schema.Kind())
	case d.Summary == nil:
		return errors.New("missing summary formatter")
	case d.Fulfillment == nil:
		return errors.New("missing fulfillment selector")
	case d.AnalyticsLabel == "":
		return errors.New("missing analytics label")
	case d.SuccessMessage == "":
		return errors.New("missing success message")
	}
	return nil
}

// checkDescriptors verifies there is a complete descriptor for every kind.
func checkDescriptors(descriptors map[leads.Kind]Descriptor) error {
	for _, kind := range leads.Kinds() {
		d, ok := descriptors[kind]
		if !ok {
			return fmt.Errorf("pipeline: no descriptor for %s", kind)
		}
		if d.Kind != kind {
			return fmt.Errorf("pipeline: descriptor for %s is registered as %s", d.Kind, kind)
		}
		if err := d.validate(); err != nil {
			return fmt.Errorf("pipeline: descriptor %s: %w", kind, err)
		}
	}
	return nil
}

// DefaultDescriptors returns the built-in descriptors for every lead kind.
func DefaultDescriptors() map[leads.Kind]Descriptor {
	out := make(map[leads.Kind]Descriptor, len(leads.Kinds()))
	for _, kind := range leads.Kinds() {
		schema, err := leads.SchemaFor(kind)
		if err != nil {
			panic(fmt.Sprintf("pipeline: %v", err))
		}
		d := Descriptor{
			Kind:           kind,
			Schema:         schema,
			Fulfillment:    fulfillmentFor,
			AnalyticsLabel: kind.String(),
		}
		switch kind {
		case leads.KindChecklist:
			d.Summary = contactSummary(i18n.TitleChecklist)
			d.SuccessMessage = i18n.MsgSuccessChecklist
		case leads.KindGuide:
			d.Summary = contactSummary(i18n.TitleGuide)
			d.SuccessMessage = i18n.MsgSuccessGuide
		case leads.KindNatalChart:
			d.Summary = natalChartSummary
			d.SuccessMessage = i18n.MsgSuccessNatalChart
		}
		out[kind] = d
	}
	return out
}

func fulfillmentFor(sub leads.Submission) fulfillment.Request {
	lead := sub.Lead()
	return fulfillment.Request{Kind: sub.Kind(), To: lead.Email, Name: lead.Name}
}

func contactFields(c leads.Contact) []notify.Field {
	consent := i18n.LabelNo
	if c.Consent {
		consent = i18n.LabelYes
	}
	return []notify.Field{
		{Label: i18n.LabelName, Value: c.Name},
		{Label: i18n.LabelEmail, Value: c.Email},
		{Label: i18n.LabelConsent, ValueKey: consent},
	}
}

func contactSummary(title i18n.Key) func(leads.Submission) notify.Summary {
	return func(sub leads.Submission) notify.Summary {
		return notify.Summary{Title: title, Fields: contactFields(sub.Lead())}
	}
}

func natalChartSummary(sub leads.Submission) notify.Summary {
	natal, ok := sub.(leads.NatalChartSubmission)
	if !ok {
		return contactSummary(i18n.TitleNatalChart)(sub)
	}
	birthTime := notify.Field{Label: i18n.LabelBirthTime, Value: natal.BirthTime.String()}
	if !natal.BirthTimeKnown {
		birthTime.Note = i18n.LabelTimeUnknown
	}
	contact := contactFields(natal.Contact)
	fields := []notify.Field{
		contact[0],
		contact[1],
		{Label: i18n.LabelBirthDate, Value: natal.BirthDate.Format(birthDateLayout)},
		birthTime,
		{Label: i18n.LabelBirthPlace, Value: natal.BirthPlace},
		contact[2],
	}
	return notify.Summary{Title: i18n.TitleNatalChart, Fields: fields}
}

// withDefaults fills orchestrator-level defaults into a validated submission.
func withDefaults(sub leads.Submission) leads.Submission {
	if natal, ok := sub.(leads.NatalChartSubmission); ok && !natal.BirthTimeKnown {
		natal.BirthTime = DefaultBirthTime
		return natal
	}
	return sub
}
