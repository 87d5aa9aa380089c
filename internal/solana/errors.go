package solana

import "fmt"

// FetchKind classifies a failed balance fetch. Failures are always
// wallet-local: the scanner counts and logs them, nothing retries them
// within a scan.
type FetchKind int

const (
	// FetchTimeout - the call exceeded its deadline.
	FetchTimeout FetchKind = iota
	// FetchUnreachable - the endpoint could not be reached at all.
	FetchUnreachable
	// FetchProtocolError - the endpoint answered with something that is not
	// a valid JSON-RPC balance response.
	FetchProtocolError
	// FetchRemoteRejected - the endpoint answered with an explicit RPC
	// error payload.
	FetchRemoteRejected
)

func (k FetchKind) String() string {
	switch k {
	case FetchTimeout:
		return "timeout"
	case FetchUnreachable:
		return "unreachable"
	case FetchProtocolError:
		return "protocol_error"
	case FetchRemoteRejected:
		return "remote_rejected"
	default:
		return "unknown"
	}
}

// FetchError is the only error type GetBalance returns.
type FetchError struct {
	Kind    FetchKind
	Address string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("balance fetch %s for %s", e.Kind, e.Address)
	}
	return fmt.Sprintf("balance fetch %s for %s: %v", e.Kind, e.Address, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
