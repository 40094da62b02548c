package checkin

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition   = errors.New("checkin: action not available in the current state")
	ErrBusy                = errors.New("checkin: another action is still in progress")
	ErrStale               = errors.New("checkin: response superseded by a newer request")
	ErrUnknownRegistration = errors.New("checkin: registration not found")
	ErrUnknownGuest        = errors.New("checkin: guest not found in the search results")
	ErrGenerateUnavailable = errors.New("checkin: generate is only offered for an empty date with an active template")
	ErrNoMoveTarget        = errors.New("checkin: choose a destination mat first")
	ErrRemoveNotRequested  = errors.New("checkin: remove must be requested before it is confirmed")
	ErrGuestNotChosen      = errors.New("checkin: choose a guest first")
	ErrNoPage              = errors.New("checkin: no such guest page")
)

// Collaborator operation names carried by CollaboratorError.
const (
	OpFetchRegistrations = "fetchRegistrationsByDate"
	OpFetchAvailable     = "fetchAvailableRegistrations"
	OpFetchTemplates     = "fetchActiveTemplates"
	OpFetchGuests        = "fetchGuestsByName"
	OpInsertGuest        = "insertGuest"
	OpAssign             = "assign"
	OpDeassign           = "deassign"
	OpReassign           = "reassign"
	OpGenerate           = "generateFromTemplate"
)

// DuplicateAssignmentError rejects a guest who already holds a mat on the
// date being worked on.
type DuplicateAssignmentError struct {
	GuestID   int64
	MatNumber int
}

func (e *DuplicateAssignmentError) Error() string {
	return fmt.Sprintf("This Guest is already assigned to mat %d. "+
		"Multiple assignments of the same Guest, on the same date, are not allowed.", e.MatNumber)
}

// CollaboratorError wraps a failed fetch or mutation.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}
