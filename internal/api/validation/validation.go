package validation

import (
	"fmt"
	"regexp"
	"time"
)

// Score bounds for a review, both inclusive.
const (
	MinScore = 1
	MaxScore = 10
)

// QuaternaryPeriodStart is the fixed lower bound for Title.Year. The catalog
// does not accept works older than the current geological period.
const QuaternaryPeriodStart = -2588000

// ReservedUsername is claimed by the /users/me endpoint and can never be
// registered.
const ReservedUsername = "me"

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// IsSlug reports whether s matches the slug charset. It backs both CheckSlug
// and the "slug" binding tag registered by the router.
func IsSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// Violations accumulates field-level validation failures. The zero value is
// ready to use.
type Violations map[string][]string

// Add records a failure message for a field.
func (v *Violations) Add(field, message string) {
	if *v == nil {
		*v = Violations{}
	}
	(*v)[field] = append((*v)[field], message)
}

// Empty reports whether no violations were recorded.
func (v Violations) Empty() bool {
	return len(v) == 0
}

// Error implements error so a Violations value can travel through error
// returns when callers prefer that shape.
func (v Violations) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(v))
}

// CheckSlug validates the slug charset and length shared by categories and
// genres.
func CheckSlug(v *Violations, field, slug string) {
	if slug == "" {
		v.Add(field, "slug is required")
		return
	}
	if len(slug) > 50 {
		v.Add(field, "slug must be at most 50 characters")
	}
	if !IsSlug(slug) {
		v.Add(field, "slug may only contain letters, digits, hyphens and underscores")
	}
}

// CheckScore validates a review score against the inclusive [1,10] range.
func CheckScore(v *Violations, score int) {
	if score < MinScore || score > MaxScore {
		v.Add("score", fmt.Sprintf("score must be between %d and %d", MinScore, MaxScore))
	}
}

// CheckYear validates a title year. now is evaluated once by the caller so the
// upper and lower bounds cannot disagree about the current moment.
func CheckYear(v *Violations, year int, now time.Time) {
	if year > now.Year() {
		v.Add("year", "year must not be in the future")
	}
	if year < QuaternaryPeriodStart {
		v.Add("year", fmt.Sprintf("year must not precede %d", QuaternaryPeriodStart))
	}
}

// CheckUsername validates a username for the signup flow.
func CheckUsername(v *Violations, username string) {
	if username == "" {
		v.Add("username", "username is required")
		return
	}
	if username == ReservedUsername {
		v.Add("username", `username "me" is reserved`)
	}
	if len(username) > 150 {
		v.Add("username", "username must be at most 150 characters")
	}
}
