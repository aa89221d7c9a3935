package leads

import (
	"fmt"
	"time"
)

// Contact holds the fields every lead magnet form collects.
type Contact struct {
	Name    string
	Email   string
	Consent bool
}

// Submission is a validated lead. Only this package constructs values of the
// concrete types, so a Submission is never partially valid.
type Submission interface {
	Kind() Kind
	Lead() Contact
	submission()
}

// ChecklistSubmission requests the checklist PDF.
type ChecklistSubmission struct {
	Contact
}

func (ChecklistSubmission) Kind() Kind      { return KindChecklist }
func (s ChecklistSubmission) Lead() Contact { return s.Contact }
func (ChecklistSubmission) submission()     {}

// GuideSubmission requests the guide PDF.
type GuideSubmission struct {
	Contact
}

func (GuideSubmission) Kind() Kind      { return KindGuide }
func (s GuideSubmission) Lead() Contact { return s.Contact }
func (GuideSubmission) submission()     {}

// NatalChartSubmission carries birth data for a natal chart reading.
// BirthTime is meaningful only when BirthTimeKnown is true.
type NatalChartSubmission struct {
	Contact
	BirthDate      time.Time
	BirthTime      ClockTime
	BirthTimeKnown bool
	BirthPlace     string
}

func (NatalChartSubmission) Kind() Kind      { return KindNatalChart }
func (s NatalChartSubmission) Lead() Contact { return s.Contact }
func (NatalChartSubmission) submission()     {}

// BirthMoment combines the birth date and time in UTC.
func (s NatalChartSubmission) BirthMoment() time.Time {
	return time.Date(s.BirthDate.Year(), s.BirthDate.Month(), s.BirthDate.Day(),
		s.BirthTime.Hour, s.BirthTime.Minute, 0, 0, time.UTC)
}

// ClockTime is a wall-clock time of day with minute precision.
type ClockTime struct {
	Hour   int
	Minute int
}

// String renders the canonical zero-padded HH:MM form.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ParseClockTime accepts only the canonical HH:MM form, 00:00 through 23:59.
// Unpadded values such as "9:5" are rejected.
func ParseClockTime(s string) (ClockTime, bool) {
	if len(s) != 5 || s[2] != ':' {
		return ClockTime{}, false
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return ClockTime{}, false
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h > 23 || m > 59 {
		return ClockTime{}, false
	}
	return ClockTime{Hour: h, Minute: m}, true
}
