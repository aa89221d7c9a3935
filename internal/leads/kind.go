package leads

import "fmt"

// Kind identifies a lead magnet.
type Kind int

const (
	KindChecklist Kind = iota + 1
	KindGuide
	KindNatalChart
)

// Kinds lists every lead magnet kind. Consumers that map kinds to behavior
// check their tables against this list.
func Kinds() []Kind {
	return []Kind{KindChecklist, KindGuide, KindNatalChart}
}

// String returns the wire label used in analytics and logs.
func (k Kind) String() string {
	switch k {
	case KindChecklist:
		return "checklist"
	case KindGuide:
		return "guide"
	case KindNatalChart:
		return "natal_chart"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Slug returns the URL path segment for the kind.
func (k Kind) Slug() string {
	switch k {
	case KindChecklist:
		return "checklist"
	case KindGuide:
		return "guide"
	case KindNatalChart:
		return "natal-chart"
	default:
		return ""
	}
}

// Valid reports whether k is one of Kinds().
func (k Kind) Valid() bool {
	return k >= KindChecklist && k <= KindNatalChart
}
