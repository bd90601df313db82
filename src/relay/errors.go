package relay

import "fmt"

// Kind classifies a RelayError onto the JSON-RPC error taxonomy of
// spec §7. The numeric codes match real EVM relayer conventions seen on
// the wire, not jsonrpc_core's generic server-error range.
type Kind int

const (
	KindInvalidParams Kind = iota
	KindInvalidSignature
	KindUnsupportedPaymentToken
	KindUnsupportedCapability
	KindSimulationFailed
	KindInternalError
)

var kindCodes = map[Kind]int{
	KindInvalidParams:           -32602,
	KindInvalidSignature:        -4201,
	KindUnsupportedPaymentToken: -4202,
	KindUnsupportedCapability:   -4209,
	KindSimulationFailed:        -4211,
	KindInternalError:           -32603,
}

var kindNames = map[Kind]string{
	KindInvalidParams:           "InvalidParams",
	KindInvalidSignature:        "InvalidSignature",
	KindUnsupportedPaymentToken: "UnsupportedPaymentToken",
	KindUnsupportedCapability:   "UnsupportedCapability",
	KindSimulationFailed:        "SimulationFailed",
	KindInternalError:           "InternalError",
}

// RelayError is the error type every component returns for caller-visible
// failures. It carries enough information for the RPC Facade to build a
// JSON-RPC error object without inspecting error strings.
type RelayError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *RelayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", kindNames[e.Kind], e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", kindNames[e.Kind], e.Message)
}

func (e *RelayError) Unwrap() error { return e.Cause }

// Code returns the JSON-RPC error code the RPC Facade should emit.
func (e *RelayError) Code() int { return kindCodes[e.Kind] }

// ErrorCode satisfies go-ethereum/rpc's Error interface so the HTTP
// codec emits this code directly instead of a generic server error.
func (e *RelayError) ErrorCode() int { return e.Code() }

func newErr(k Kind, msg string, cause error) *RelayError {
	return &RelayError{Kind: k, Message: msg, Cause: cause}
}

func ErrInvalidParams(msg string) *RelayError       { return newErr(KindInvalidParams, msg, nil) }
func ErrInvalidSignature(msg string) *RelayError    { return newErr(KindInvalidSignature, msg, nil) }
func ErrUnsupportedToken(msg string) *RelayError    { return newErr(KindUnsupportedPaymentToken, msg, nil) }
func ErrUnsupportedCapability(msg string) *RelayError {
	return newErr(KindUnsupportedCapability, msg, nil)
}
func ErrSimulationFailed(msg string, cause error) *RelayError {
	return newErr(KindSimulationFailed, msg, cause)
}
func ErrInternal(msg string, cause error) *RelayError { return newErr(KindInternalError, msg, cause) }

// ChainErrorKind classifies failures surfaced by the Chain Client. No
// retry policy is attached here — retry decisions live with the caller.
type ChainErrorKind int

const (
	ChainErrTransport ChainErrorKind = iota
	ChainErrDecode
	ChainErrReverted
)

// ChainError is returned by every Chain Client method.
type ChainError struct {
	Kind    ChainErrorKind
	Message string
	Data    []byte
	Cause   error
}

func (e *ChainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("chain error (%v): %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("chain error (%v): %s", e.Kind, e.Message)
}

func (e *ChainError) Unwrap() error { return e.Cause }

func NewTransportError(msg string, cause error) *ChainError {
	return &ChainError{Kind: ChainErrTransport, Message: msg, Cause: cause}
}

func NewDecodeError(msg string, cause error) *ChainError {
	return &ChainError{Kind: ChainErrDecode, Message: msg, Cause: cause}
}

func NewRevertedError(msg string, data []byte) *ChainError {
	return &ChainError{Kind: ChainErrReverted, Message: msg, Data: data}
}
