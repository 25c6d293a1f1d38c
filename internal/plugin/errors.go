package plugin

import (
	"errors"
	"fmt"
)

// Kind classifies a failed call or initialisation.
type Kind string

const (
	KindValidation Kind = "validation"
	KindConfig     Kind = "config"
	KindConnect    Kind = "connect"
	KindUpstream   Kind = "upstream"
	KindInternal   Kind = "internal"
)

// Messages returned to the host. Kept byte-for-byte stable for existing callers.
const (
	msgNoText        = "No text to say."
	msgTokenNotSet   = "Slack token is not properly set."
	msgSetTokenFirst = "Please set Slack bot API token first."
	msgCannotConnect = "Could not connect to Slack"
	msgNoBot         = "Bot is not defined yet"
)

var (
	// ErrNoSession means no bot session is active.
	ErrNoSession = errors.New(msgNoBot)
	// ErrNoToken means the settings store holds no bot token.
	ErrNoToken = errors.New("no bot token stored")
)

// InitError is returned by Init. Error() yields the host-facing message for
// the kind; the underlying cause stays reachable through Unwrap.
type InitError struct {
	Kind Kind
	Err  error
}

func (e *InitError) Error() string {
	if e.Kind == KindConnect {
		return msgCannotConnect
	}
	return msgSetTokenFirst
}

func (e *InitError) Unwrap() error { return e.Err }

// Detail includes the cause, for logs.
func (e *InitError) Detail() string {
	if e.Err == nil {
		return e.Error()
	}
	return fmt.Sprintf("%s: %v", e.Error(), e.Err)
}
