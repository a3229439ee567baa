package incidents

import "errors"

var (
	ErrIncidentNotFound  = errors.New("incident not found")
	ErrInvalidSeverity   = errors.New("invalid severity")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrRootCauseRequired = errors.New("root cause required to close incident")
	ErrSharingDisabled   = errors.New("sharing is not enabled for this incident")
)
