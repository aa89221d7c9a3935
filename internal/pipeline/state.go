package pipeline

import "net/http"

// State is a step of submission processing. Terminal states end processing
// and determine the response.
type State int

const (
	StateRateLimited State = iota
	StateParsingBody
	StateValidating
	StateNotifying
	StateFulfilling
	StateTracking
	StateResponding

	StateRejectedRateLimit
	StateRejectedBadBody
	StateRejectedValidation
	StateFailedNotification
	StateCompleted
)

var stateNames = map[State]string{
	StateRateLimited:        "rate_limited",
	StateParsingBody:        "parsing_body",
	StateValidating:         "validating",
	StateNotifying:          "notifying",
	StateFulfilling:         "fulfilling",
	StateTracking:           "tracking",
	StateResponding:         "responding",
	StateRejectedRateLimit:  "rejected_rate_limit",
	StateRejectedBadBody:    "rejected_bad_body",
	StateRejectedValidation: "rejected_validation",
	StateFailedNotification: "failed_notification",
	StateCompleted:          "completed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether s ends processing.
func (s State) Terminal() bool {
	return s >= StateRejectedRateLimit
}

// HTTPStatus maps a terminal state to its response status.
func (s State) HTTPStatus() int {
	switch s {
	case StateRejectedRateLimit:
		return http.StatusTooManyRequests
	case StateRejectedBadBody, StateRejectedValidation:
		return http.StatusBadRequest
	case StateFailedNotification:
		return http.StatusInternalServerError
	case StateCompleted:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

// Step names a side effect.
type Step string

const (
	StepNotification Step = "notification"
	StepFulfillment  Step = "fulfillment"
	StepAnalytics    Step = "analytics"
)

// DispatchResult records the outcome of one side effect. For analytics,
// Succeeded means the event was handed to the detached emitter.
type DispatchResult struct {
	Step      Step
	Succeeded bool
	Err       error
}
