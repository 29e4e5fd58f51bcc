package services

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermes-crm/hermes/config"
)

func TestCardRenderWritesPNG(t *testing.T) {
	dir := t.TempDir()
	svc := NewCardService(config.Image{Dir: dir, Width: 400, Height: 200})
	date := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)

	path, err := svc.Render("Happy Logistics Day", "For Anna Bergman", date)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	bounds := img.Bounds()
	assert.Equal(t, 400, bounds.Dx())
	assert.Equal(t, 200, bounds.Dy())
}

func TestCardRenderStableFilename(t *testing.T) {
	dir := t.TempDir()
	svc := NewCardService(config.Image{Dir: dir, Width: 400, Height: 200})
	date := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)

	first, err := svc.Render("Happy Logistics Day", "For Anna Bergman", date)
	require.NoError(t, err)
	second, err := svc.Render("Happy Logistics Day", "For Anna Bergman", date)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	other, err := svc.Render("Happy Birthday", "For Boris Keller", date)
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestCardRenderDefaultDimensions(t *testing.T) {
	dir := t.TempDir()
	svc := NewCardService(config.Image{Dir: dir})

	path, err := svc.Render("Happy Day", "For Someone", time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 1200, img.Bounds().Dx())
	assert.Equal(t, 630, img.Bounds().Dy())
}
