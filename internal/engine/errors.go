package engine

import (
	"errors"

	"github.com/roach88/shopstate/internal/model"
)

// ErrStopped is returned by Submit once the engine's Run loop has stopped.
var ErrStopped = errors.New("engine stopped")

// Journal outcomes besides error codes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "ERROR"
)

// OutcomeOf maps a command error to its journal outcome: "ok" for nil, the
// model.ErrorCode for domain errors, and "ERROR" for anything else.
func OutcomeOf(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if code := model.CodeOf(err); code != "" {
		return string(code)
	}
	return OutcomeError
}
