package gateway

import (
	"errors"
	"fmt"
)

// ErrUnknownReference means a poll or confirmation named a reference the
// gateway never issued (or one invalidated by regeneration).
var ErrUnknownReference = errors.New("gateway: unknown reference")

// GatewayError is a transient service failure. The calling driver stays
// actionable and the user may retry.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway: %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// RejectionError means the gateway looked at a manual proof or reference
// and said no. The driver returns to its confirmation step.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return "gateway: rejected: " + e.Reason
}

// IsRejection reports whether err is a RejectionError.
func IsRejection(err error) bool {
	var r *RejectionError
	return errors.As(err, &r)
}
