package services

import (
	"fmt"

	courseModels "lms/models/course"
)

// EligibilityPolicy decides whether a course level qualifies for a
// completion certificate. Entry-level courses never do.
type EligibilityPolicy struct{}

// IsEligible reports whether a course at the given level earns a
// certificate. Unknown levels fail closed with ErrInvalidArgument rather
// than silently issuing.
func (EligibilityPolicy) IsEligible(level string) (bool, error) {
	for i, l := range courseModels.Levels {
		if l == level {
			return i >= 1, nil
		}
	}
	return false, fmt.Errorf("%w: unknown course level %q", ErrInvalidArgument, level)
}
