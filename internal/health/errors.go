package health

import "errors"

// ErrCircuitOpen is returned when the circuit breaker is open and rejecting requests.
var ErrCircuitOpen = errors.New("health: circuit breaker is open, upstream temporarily unavailable")
