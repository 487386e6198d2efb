package trade

import "errors"

// Errors caused by user input or by the state of the session. Anything
// else a Desk returns is a storage fault.
var (
	ErrInvalidPrice = errors.New("price must be a positive number")
	ErrNoOpenTrade  = errors.New("no open trade")
	ErrAlreadyOpen  = errors.New("a trade is already open")
	ErrOutOfRange   = errors.New("quality must be between 0 and 100")
)
