package apperrors

import "errors"

var (
	ErrNotFound                = errors.New("not found")
	ErrConflict                = errors.New("conflict")
	ErrNoProject               = errors.New("no current project")
	ErrInvalidPhase            = errors.New("invalid phase")
	ErrPhaseGated              = errors.New("phase requirements not satisfied")
	ErrPhaseSkipped            = errors.New("cannot skip ahead past the next phase")
	ErrProjectClosed           = errors.New("project is completed or failed")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrUnknownPlatform         = errors.New("unknown code generation platform")
	ErrOperationRunning        = errors.New("operation already running")
	ErrNoTablePair             = errors.New("no source/target table pair selected")
	ErrInvalidInput            = errors.New("invalid input")
)
