package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPropertyTypeFromLabel(t *testing.T) {
	cases := []struct {
		label string
		want  PropertyType
		ok    bool
	}{
		{"apartment", TypeApartment, true},
		{"マンション", TypeApartment, true},
		{"賃貸マンション", TypeApartment, true},
		{"賃貸アパート", TypeApart, true},
		{"一戸建", TypeHouse, true},
		{"賃貸一戸建て", TypeHouse, true},
		{"駐車場", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := PropertyTypeFromLabel(tc.label)
		assert.Equal(t, tc.ok, ok, tc.label)
		assert.Equal(t, tc.want, got, tc.label)
	}
}

func TestHasCoordinates(t *testing.T) {
	lat, lon := 35.65, 139.7

	assert.False(t, (&Property{}).HasCoordinates())
	assert.False(t, (&Property{Latitude: &lat}).HasCoordinates())
	assert.True(t, (&Property{Latitude: &lat, Longitude: &lon}).HasCoordinates())
}
