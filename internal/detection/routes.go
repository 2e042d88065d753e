package detection

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"sitesense-backend/internal/config"
	"sitesense-backend/internal/models"
)

// Shape is how a route lays out the detection request URL.
type Shape int

const (
	// ShapeCategoryPath posts to {base}/detect/{kind}/{comma-joined categories}.
	ShapeCategoryPath Shape = iota
	// ShapeKindOnly posts to {base}/detect/{kind}; the model is fixed.
	ShapeKindOnly
)

// Route maps a category selection onto a detection endpoint.
type Route struct {
	Name    string
	Matches func(categories []string) bool
	BaseURL string
	Shape   Shape
}

// URL builds the request URL for one call on this route.
func (r Route) URL(kind models.MediaKind, categories []string) string {
	base := strings.TrimSuffix(r.BaseURL, "/") + "/detect/" + string(kind)
	if r.Shape == ShapeKindOnly {
		return base
	}

	escaped := make([]string, len(categories))
	for i, c := range categories {
		escaped[i] = url.PathEscape(c)
	}
	return base + "/" + strings.Join(escaped, ",")
}

// ExactSelection matches only when the selection is exactly want, in any order.
func ExactSelection(want ...string) func([]string) bool {
	return func(categories []string) bool {
		if len(categories) != len(want) {
			return false
		}
		for _, w := range want {
			if !slices.Contains(categories, w) {
				return false
			}
		}
		return true
	}
}

func AnySelection([]string) bool { return true }

// DefaultRoutes is the routing table used in production: Traffic Cars goes to
// the dedicated traffic model, everything else to the general detector.
func DefaultRoutes(cfg config.DetectionConfig) []Route {
	routes := make([]Route, 0, 2)
	if cfg.TrafficBaseURL != "" {
		routes = append(routes, Route{
			Name:    "traffic",
			Matches: ExactSelection(TrafficCars),
			BaseURL: cfg.TrafficBaseURL,
			Shape:   ShapeKindOnly,
		})
	}
	return append(routes, Route{
		Name:    "default",
		Matches: AnySelection,
		BaseURL: cfg.BaseURL,
		Shape:   ShapeCategoryPath,
	})
}

func resolve(routes []Route, categories []string) (Route, error) {
	for _, r := range routes {
		if r.Matches(categories) {
			return r, nil
		}
	}
	return Route{}, fmt.Errorf("no detection route for categories %v", categories)
}
