package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"time"
)

const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// WriteHeaders sets the rate-limit metadata on h. Reset is in epoch seconds,
// rounded up. Rejections also get Retry-After.
func WriteHeaders(h http.Header, d Decision, now time.Time) {
	remaining := d.Remaining
	if remaining < 0 {
		remaining = 0
	}
	h.Set(HeaderLimit, strconv.Itoa(d.Limit))
	h.Set(HeaderRemaining, strconv.Itoa(remaining))
	h.Set(HeaderReset, strconv.FormatInt(ceilSeconds(d.ResetAt.UnixMilli()), 10))
	if !d.Allowed {
		retry := int64(math.Ceil(d.RetryAfter(now).Seconds()))
		if retry < 1 {
			retry = 1
		}
		h.Set("Retry-After", strconv.FormatInt(retry, 10))
	}
}

func ceilSeconds(ms int64) int64 {
	if ms%1000 == 0 {
		return ms / 1000
	}
	return ms/1000 + 1
}
