package command

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/tradejournal/trade"
)

// Kind classifies a failure the user can fix.
type Kind string

const (
	InvalidPrice       Kind = "InvalidPrice"
	NoOpenTrade        Kind = "NoOpenTrade"
	AlreadyOpen        Kind = "AlreadyOpen"
	OutOfRange         Kind = "OutOfRange"
	MalformedArguments Kind = "MalformedArguments"
	UnknownCommand     Kind = "UnknownCommand"
	// NoData is reported through Result.Empty, never as an Error.
	NoData Kind = "NoData"
)

// Error is a user facing failure. Storage faults are never wrapped in one.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a user error, or false for anything else.
func KindOf(err error) (Kind, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}

var sentinels = []struct {
	err  error
	kind Kind
}{
	{trade.ErrInvalidPrice, InvalidPrice},
	{trade.ErrNoOpenTrade, NoOpenTrade},
	{trade.ErrAlreadyOpen, AlreadyOpen},
	{trade.ErrOutOfRange, OutOfRange},
}

// classify turns lifecycle sentinels into user errors and passes
// everything else through.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return &Error{Kind: s.kind, Message: s.err.Error()}
		}
	}
	return err
}
