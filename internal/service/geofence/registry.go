package geofence

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/geofence"
	"github.com/cmlabs-hris/hris-attendance-leave/internal/pkg/utils"
	"gopkg.in/yaml.v3"
)

type Registry struct {
	sites []geofence.Site
	byID  map[string]geofence.Site
}

// NewRegistry validates sites and builds an immutable registry over them.
func NewRegistry(sites []geofence.Site) (*Registry, error) {
	r := &Registry{
		sites: make([]geofence.Site, 0, len(sites)),
		byID:  make(map[string]geofence.Site, len(sites)),
	}

	for i, site := range sites {
		if site.ID == "" {
			return nil, fmt.Errorf("site #%d: missing id: %w", i, geofence.ErrInvalidSite)
		}
		if len(site.Polygon) < 3 {
			return nil, fmt.Errorf("site %q: polygon needs at least 3 vertices: %w", site.ID, geofence.ErrInvalidSite)
		}
		if _, dup := r.byID[site.ID]; dup {
			return nil, fmt.Errorf("site %q: duplicate id: %w", site.ID, geofence.ErrInvalidSite)
		}

		polygon := make([]utils.Point, len(site.Polygon))
		copy(polygon, site.Polygon)
		site.Polygon = polygon

		r.sites = append(r.sites, site)
		r.byID[site.ID] = site
	}

	return r, nil
}

// LoadFile reads a YAML sites file. A missing file yields an empty registry so that
// remote-only deployments can start without one.
func LoadFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("geofence sites file not found, onsite clock-in will be rejected", "path", path)
			return NewRegistry(nil)
		}
		return nil, fmt.Errorf("read sites file: %w", err)
	}

	var file geofence.SitesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse sites file %s: %w", path, err)
	}

	registry, err := NewRegistry(file.Sites)
	if err != nil {
		return nil, err
	}

	slog.Info("geofence sites loaded", "path", path, "count", len(file.Sites))
	return registry, nil
}

func (r *Registry) Check(point utils.Point, siteID string) error {
	if siteID != "" {
		site, ok := r.byID[siteID]
		if !ok {
			return geofence.ErrSiteNotFound
		}
		if !utils.IsInside(point, site.Polygon) {
			return geofence.ErrGeofenceViolation
		}
		return nil
	}

	for _, site := range r.sites {
		if utils.IsInside(point, site.Polygon) {
			return nil
		}
	}
	return geofence.ErrGeofenceViolation
}

func (r *Registry) Sites() []geofence.Site {
	out := make([]geofence.Site, len(r.sites))
	copy(out, r.sites)
	return out
}
