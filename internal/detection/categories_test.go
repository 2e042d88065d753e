package detection_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"sitesense-backend/internal/detection"
)

func TestToggle_TrafficCarsClearsOthers(t *testing.T) {
	selected := detection.Toggle([]string{"Car", "Person"}, detection.TrafficCars)
	assert.Equal(t, []string{detection.TrafficCars}, selected)
}

func TestToggle_OtherCategoryClearsTrafficCars(t *testing.T) {
	selected := detection.Toggle([]string{detection.TrafficCars}, "Car")
	assert.Equal(t, []string{"Car"}, selected)
}

func TestToggle_Deselect(t *testing.T) {
	selected := detection.Toggle([]string{"Car", "Person"}, "Car")
	assert.Equal(t, []string{"Person"}, selected)

	selected = detection.Toggle([]string{detection.TrafficCars}, detection.TrafficCars)
	assert.Empty(t, selected)
}

func TestToggle_NeverCombinesTrafficCars(t *testing.T) {
	var selected []string
	for _, c := range []string{"Car", detection.TrafficCars, "Bus", "Person", detection.TrafficCars, "Truck"} {
		selected = detection.Toggle(selected, c)
		assert.NoError(t, detection.ValidateSelection(selected), "after toggling %q: %v", c, selected)
	}
}

func TestValidateSelection(t *testing.T) {
	assert.ErrorIs(t, detection.ValidateSelection(nil), detection.ErrNoCategories)
	assert.ErrorIs(t, detection.ValidateSelection([]string{"Car", detection.TrafficCars}), detection.ErrExclusiveCategory)
	assert.ErrorIs(t, detection.ValidateSelection([]string{"Unicorn"}), detection.ErrUnknownCategory)
	assert.NoError(t, detection.ValidateSelection([]string{"Car", "Person"}))
}

func TestCatalogue_ReturnsCopy(t *testing.T) {
	c := detection.Catalogue()
	c[0] = "mutated"
	assert.Equal(t, "Car", detection.Catalogue()[0])
}
