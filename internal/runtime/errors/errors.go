package errors

import sterrors "errors"

var (
	ErrConfigRequired       = sterrors.New("ingress: config is required")
	ErrSubscriptionRequired = sterrors.New("ingress: at least one subscription is required")
	ErrRoutingKeyRequired   = sterrors.New("ingress: subscription routing key is required")
	ErrSubscriberRequired   = sterrors.New("ingress: subscriber is required")
	ErrDispatcherRequired   = sterrors.New("ingress: dispatcher is required")
	ErrUnknownTransport     = sterrors.New("ingress: unknown transport")
)

// Property coercion failures. Normalization collapses all of them into the
// field default, they only surface in diagnostics.
var (
	ErrPropertyNil         = sterrors.New("ingress: property value is nil")
	ErrPropertyEmpty       = sterrors.New("ingress: property value is empty")
	ErrPropertyType        = sterrors.New("ingress: property value has unsupported type")
	ErrPropertyNegative    = sterrors.New("ingress: property value is negative")
	ErrPropertyNotAbsolute = sterrors.New("ingress: property value is not an absolute URI")
	ErrPropertyUnknownKind = sterrors.New("ingress: property value is not a known message type")
)

// ConfigValidationError wraps the joined validation failures of a Config.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return "ingress: invalid configuration: " + e.Err.Error()
}

func (e ConfigValidationError) Unwrap() error {
	return e.Err
}

// NewConfigValidationError returns nil when err is nil.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}
