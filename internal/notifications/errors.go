package notifications

import "errors"

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNotOwned             = errors.New("notification belongs to another user")
)
