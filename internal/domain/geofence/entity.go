package geofence

import "github.com/cmlabs-hris/hris-attendance-leave/internal/pkg/utils"

// Site is a named onsite work area.
type Site struct {
	ID      string        `yaml:"id"`
	Name    string        `yaml:"name"`
	Polygon []utils.Point `yaml:"polygon"`
}

// SitesFile is the on-disk layout of the sites configuration.
type SitesFile struct {
	Sites []Site `yaml:"sites"`
}
