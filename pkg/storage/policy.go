// File: pkg/storage/policy.go
package storage

import (
	"fmt"
	"strings"
)

// HandleExisting selects what a write does when its target already exists
type HandleExisting int

const (
	Overwrite HandleExisting = iota
	Skip
	Throw
)

func (h HandleExisting) String() string {
	switch h {
	case Overwrite:
		return "overwrite"
	case Skip:
		return "skip"
	case Throw:
		return "throw"
	default:
		return fmt.Sprintf("HandleExisting(%d)", int(h))
	}
}

func ParseHandleExisting(s string) (HandleExisting, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "overwrite":
		return Overwrite, nil
	case "skip":
		return Skip, nil
	case "throw", "fail":
		return Throw, nil
	default:
		return Overwrite, fmt.Errorf("%w: unknown existing-item policy %q (use overwrite, skip or throw)", ErrInvalidArgument, s)
	}
}

// Decision is what a write should do after consulting the policy
type Decision int

const (
	Proceed Decision = iota
	SkipWrite
	Fail
)

func (d Decision) String() string {
	switch d {
	case Proceed:
		return "proceed"
	case SkipWrite:
		return "skip"
	case Fail:
		return "fail"
	default:
		return "unknown"
	}
}

// ResolveExisting applies policy to the result of an existence check.
// Unknown policies fail fast instead of degrading to Overwrite.
func ResolveExisting(existing bool, policy HandleExisting) (Decision, error) {
	switch policy {
	case Overwrite:
		return Proceed, nil
	case Skip:
		if existing {
			return SkipWrite, nil
		}
		return Proceed, nil
	case Throw:
		if existing {
			return Fail, nil
		}
		return Proceed, nil
	default:
		return Fail, fmt.Errorf("%w: existing-item policy %s", ErrNotImplemented, policy)
	}
}

// RequireOverwrite rejects any policy other than Overwrite for op
func RequireOverwrite(op string, policy HandleExisting) error {
	if policy == Overwrite {
		return nil
	}
	return fmt.Errorf("%w: %s with existing-item policy %s", ErrNotImplemented, op, policy)
}
