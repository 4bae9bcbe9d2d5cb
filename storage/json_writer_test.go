package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kawafuchieirin/real-estate-scraping/models"
)

func TestJSONWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.json")

	w, err := NewJSONWriter(path)
	require.NoError(t, err)

	props := []*models.Property{
		{
			PropertyID: "suumo_1",
			SiteName:   "suumo",
			URL:        "https://suumo.jp/chintai/?ar=030&bs=040",
			Title:      "恵比寿レジデンス",
			Rent:       intPtr(85000),
		},
		{PropertyID: "homes_2", SiteName: "homes", URL: "https://homes.co.jp/2"},
	}
	require.NoError(t, w.Write(props))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// Escaping is off: the query string survives verbatim.
	assert.Contains(t, string(data), "ar=030&bs=040")

	var got []*models.Property
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "恵比寿レジデンス", got[0].Title)
	assert.Equal(t, intPtr(85000), got[0].Rent)
	assert.Nil(t, got[1].Rent)
}

func TestJSONWriterEmptyBatchIsAnArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")

	w, err := NewJSONWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(nil))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got []*models.Property
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Empty(t, got)
}
