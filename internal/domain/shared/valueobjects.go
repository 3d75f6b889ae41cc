package shared

import (
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// ID represents a unique entity identifier (UUID format).
type ID string

// IsValid checks if the ID is a valid UUID.
func (i ID) IsValid() bool {
	return uuidRegex.MatchString(string(i))
}

// String returns the string representation.
func (i ID) String() string {
	return string(i)
}

// NewID creates a new ID with validation.
func NewID(s string) (ID, error) {
	id := ID(strings.TrimSpace(s))
	if !id.IsValid() {
		return "", ErrInvalidID
	}
	return id, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Email
// ═══════════════════════════════════════════════════════════════════════════

// Simple email shape check; full validation belongs to the delivery layer.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Email represents a validated email address.
type Email string

// IsValid checks if the email has a plausible shape.
func (e Email) IsValid() bool {
	return emailRegex.MatchString(string(e))
}

// String returns the string representation.
func (e Email) String() string {
	return string(e)
}

// Normalize returns a normalized (lowercase, trimmed) version.
func (e Email) Normalize() Email {
	return Email(strings.ToLower(strings.TrimSpace(string(e))))
}

// NewEmail creates a new Email with validation.
func NewEmail(s string) (Email, error) {
	e := Email(s).Normalize()
	if !e.IsValid() {
		return "", ErrInvalidEmail
	}
	return e, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Join Codes
// ═══════════════════════════════════════════════════════════════════════════

// JoinCode is a short numeric code used to join an ensemble (8 digits)
// or link to a teacher (6 digits).
type JoinCode string

// IsValid checks that the code is all digits of the given length.
func (c JoinCode) IsValid(length int) bool {
	if len(c) != length {
		return false
	}
	for _, r := range c {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// String returns the string representation.
func (c JoinCode) String() string {
	return string(c)
}

const (
	// EnsembleCodeLength is the length of ensemble join codes.
	EnsembleCodeLength = 8

	// TeacherCodeLength is the length of teacher link codes.
	TeacherCodeLength = 6
)

// ═══════════════════════════════════════════════════════════════════════════
// Rating
// ═══════════════════════════════════════════════════════════════════════════

// Rating is a 1-5 quality rating (focus, progress, energy).
type Rating int

// IsValid checks that the rating is within 1..5.
func (r Rating) IsValid() bool {
	return r >= 1 && r <= 5
}

// Int returns the underlying int value.
func (r Rating) Int() int {
	return int(r)
}

// NewRating creates a Rating with validation.
func NewRating(v int) (Rating, error) {
	r := Rating(v)
	if !r.IsValid() {
		return 0, ErrInvalidRating
	}
	return r, nil
}

// RatingPtr returns a *Rating for an optional int, validating when present.
// A nil input stays nil (rating not given).
func RatingPtr(v *int) (*Rating, error) {
	if v == nil {
		return nil, nil
	}
	r, err := NewRating(*v)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
