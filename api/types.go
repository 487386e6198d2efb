package api

// CommandRequest is the body of a command call.
type CommandRequest struct {
	Args string `json:"args"`
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse reports liveness and the ledger's current balance.
type HealthResponse struct {
	Status  string  `json:"status"`
	Balance float64 `json:"balance"`
}
