package core

import (
	"context"
	"time"

	"github.com/cpk123/tank-level/errcode"
	"github.com/cpk123/tank-level/types"
)

// ---- Capability & device model ----

// CapAddr is the public identity of a capability:
// hal/cap/<domain>/<kind>/<name>/...
type CapAddr struct {
	Domain string
	Kind   types.Kind
	Name   string
}

type CapabilitySpec struct {
	Domain string
	Kind   types.Kind
	Name   string
	Info   types.Info
}

// EnqueueResult is the immediate outcome of a control. Work is carried out
// later by the device worker; results arrive as events.
type EnqueueResult struct {
	OK    bool
	Error errcode.Code
}

type Device interface {
	ID() string
	Capabilities() []CapabilitySpec
	Init(ctx context.Context) error
	// Control must not block. Long operations are queued to the device worker.
	Control(cap CapAddr, verb string, payload any) (EnqueueResult, error)
	Close() error
}

// ---- Device → HAL telemetry (single shape) ----
// An Event is a value update for a capability, published retained to
// .../value. Err, when non-empty, causes HAL to publish only
// .../status=degraded.

type Event struct {
	Addr    CapAddr
	Payload any
	TS      int64  // unix ns
	Err     string // errcode value, e.g. "no_response"
}

type EventEmitter interface {
	// Emit must be non-blocking; false indicates a drop under pressure.
	Emit(ev Event) bool
}

// ---- GPIO handles ----

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

type GPIOHandle interface {
	Number() int
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(bool)
	Get() bool
}

// Clock is the platform's microsecond time source.
type Clock interface {
	Micros() uint32
	Sleep(d time.Duration)
}

// ResourceRegistry hands out exclusive ownership of platform resources.
type ResourceRegistry interface {
	ClaimGPIO(devID string, pin int) (GPIOHandle, error)
	ReleaseGPIO(devID string, pin int)
	Clock() Clock
}

// ---- HAL-injected resources ----

type Resources struct {
	Reg ResourceRegistry
	Pub EventEmitter // provided by HAL
}

// Builder input
type BuilderInput struct {
	ID, Type string
	Params   any
	Res      Resources
}

type Builder interface {
	Build(ctx context.Context, in BuilderInput) (Device, error)
}

// Claim errors carry their bus-facing code directly.
var (
	ErrUnknownPin error = errcode.UnknownPin
	ErrPinInUse   error = errcode.PinInUse
)
