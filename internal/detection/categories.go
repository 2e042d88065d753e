package detection

import (
	"errors"
	"fmt"
	"slices"
)

// TrafficCars runs on its own model and cannot be combined with any other
// category.
const TrafficCars = "Traffic Cars"

var (
	ErrNoCategories      = errors.New("select at least one detection category")
	ErrExclusiveCategory = errors.New(TrafficCars + " cannot be combined with other categories")
	ErrUnknownCategory   = errors.New("unknown detection category")
)

var catalogue = []string{
	"Car",
	"Truck",
	"Bus",
	"Motorcycle",
	"Bicycle",
	"Person",
	"Traffic Light",
	"Stop Sign",
	TrafficCars,
}

// Catalogue returns the selectable categories in display order.
func Catalogue() []string {
	return slices.Clone(catalogue)
}

func IsKnown(category string) bool {
	return slices.Contains(catalogue, category)
}

// Toggle flips category in the selection. Selecting Traffic Cars drops every
// other category, and selecting anything else drops Traffic Cars.
func Toggle(selected []string, category string) []string {
	if slices.Contains(selected, category) {
		out := make([]string, 0, len(selected))
		for _, s := range selected {
			if s != category {
				out = append(out, s)
			}
		}
		return out
	}

	if category == TrafficCars {
		return []string{TrafficCars}
	}

	out := make([]string, 0, len(selected)+1)
	for _, s := range selected {
		if s != TrafficCars {
			out = append(out, s)
		}
	}
	return append(out, category)
}

// ValidateSelection checks a selection before it is sent for detection.
func ValidateSelection(categories []string) error {
	if len(categories) == 0 {
		return ErrNoCategories
	}
	for _, c := range categories {
		if !IsKnown(c) {
			return fmt.Errorf("%w: %q", ErrUnknownCategory, c)
		}
	}
	if len(categories) > 1 && slices.Contains(categories, TrafficCars) {
		return ErrExclusiveCategory
	}
	return nil
}
