package geofence

import "github.com/cmlabs-hris/hris-attendance-leave/internal/pkg/utils"

// Validator gates onsite clock-in against configured work sites.
type Validator interface {
	// Check returns nil when point is inside the site identified by siteID,
	// or inside any configured site when siteID is empty.
	Check(point utils.Point, siteID string) error
	Sites() []Site
}
