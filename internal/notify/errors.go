package notify

import "errors"

// ErrNotificationNotFound is returned when a notification cannot be found
// for the current identity.
var ErrNotificationNotFound = errors.New("notification not found")
