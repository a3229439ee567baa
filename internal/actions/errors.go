package actions

import "errors"

var (
	ErrActionItemNotFound = errors.New("action item not found")
	ErrIncidentNotFound   = errors.New("incident not found")
	ErrInvalidPriority    = errors.New("invalid priority")
	ErrInvalidStatus      = errors.New("invalid status")
)
