package factory

import (
	"fmt"
	"strings"
)

// DatePolicy decides what happens to a record whose deposit date cannot be
// parsed.
type DatePolicy string

const (
	// DatePolicyReject returns the *DateError to the caller.
	DatePolicyReject DatePolicy = "reject"
	// DatePolicyToday substitutes the current date and carries on.
	DatePolicyToday DatePolicy = "today"
)

func ParseDatePolicy(s string) (DatePolicy, error) {
	switch p := DatePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case DatePolicyReject, DatePolicyToday:
		return p, nil
	case "":
		return DatePolicyReject, nil
	default:
		return "", fmt.Errorf("unknown date policy %q", s)
	}
}
