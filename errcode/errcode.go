package errcode

import (
	"errors"

	"github.com/cpk123/tank-level/drivers/seelevel"
)

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK                Code = "ok"
	Busy              Code = "busy"
	Unavailable       Code = "unavailable"
	Unsupported       Code = "unsupported"
	InvalidParams     Code = "invalid_params"
	InvalidPayload    Code = "invalid_payload"
	UnknownCapability Code = "unknown_capability"
	HALNotReady       Code = "hal_not_ready"
	InvalidTopic      Code = "invalid_topic"

	UnknownPin Code = "unknown_pin"
	PinInUse   Code = "pin_in_use"
	Timeout    Code = "timeout"

	// Tank sensor outcomes.
	NoResponse            Code = "no_response"
	PreambleError         Code = "preamble_error"
	ChecksumError         Code = "checksum_error"
	CalibratedUnsupported Code = "calibrated_unsupported"
	InvalidAddress        Code = "invalid_address"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	return MapDriverErr(err)
}

// MapDriverErr maps low-level driver errors to a Code.
func MapDriverErr(err error) Code {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, seelevel.ErrNoResponse):
		return NoResponse
	case errors.Is(err, seelevel.ErrPreamble):
		return PreambleError
	case errors.Is(err, seelevel.ErrChecksum):
		return ChecksumError
	case errors.Is(err, seelevel.ErrCalibratedUnsupported):
		return CalibratedUnsupported
	case errors.Is(err, seelevel.ErrInvalidAddress):
		return InvalidAddress
	case errors.Is(err, seelevel.ErrFrameSize):
		return InvalidParams
	}
	return Error
}
