package geofence

import "errors"

var (
	ErrGeofenceViolation = errors.New("location is outside the permitted work site")
	ErrSiteNotFound      = errors.New("work site not found")
	ErrInvalidSite       = errors.New("invalid work site definition")
)
