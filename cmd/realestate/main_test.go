package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCSV(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.csv")
	header := "id,title,description,type,price,country,region,municipality,town,postcode,features\n"
	require.NoError(t, os.WriteFile(good, []byte(header+"P1,Villa,,Villa,100,ES,,,,,\n"), 0o644))

	out, err := execute(t, "validate-csv", good)
	require.NoError(t, err)
	assert.Contains(t, out, "ok")

	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("id,title\nP1,Villa\n"), 0o644))
	_, err = execute(t, "validate-csv", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price")
}

func TestDeriveWritesVariants(t *testing.T) {
	dir := t.TempDir()
	src := image.NewNRGBA(image.Rect(0, 0, 1200, 900))
	for y := 0; y < 900; y++ {
		for x := 0; x < 1200; x++ {
			src.Set(x, y, color.NRGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	in := filepath.Join(dir, "pool.png")
	f, err := os.Create(in)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, src))
	require.NoError(t, f.Close())

	outDir := filepath.Join(dir, "out")
	out, err := execute(t, "derive", in, "--out", outDir)
	require.NoError(t, err)
	assert.Len(t, strings.Fields(out), 3)

	thumb, err := imaging.Open(filepath.Join(outDir, "thumbnails", "pool.jpg"))
	require.NoError(t, err)
	assert.Equal(t, 150, thumb.Bounds().Dx())
	assert.Equal(t, 150, thumb.Bounds().Dy())
}

func TestDeriveRejectsUnsupportedType(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "plan.gif")
	require.NoError(t, os.WriteFile(in, []byte("GIF89a"), 0o644))
	_, err := execute(t, "derive", in)
	require.Error(t, err)
}
