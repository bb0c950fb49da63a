// Package derive produces the fixed set of JPEG renditions stored for every
// uploaded property photo.
package derive

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/Networkcaretaker/real-estate-backend/internal/model"
)

// MaxFileSize is the advisory upload limit checked by Accept.
const MaxFileSize = 10 << 20

// MaxPixels caps the decoded size of an upload. A small compressed file can
// declare dimensions that would need gigabytes once decoded.
const MaxPixels = 178956970

// Policy is how a variant is fitted into its box.
type Policy int

const (
	// SquareCrop takes the centered square of the source and shrinks it to
	// the box.
	SquareCrop Policy = iota
	// FitCrop shrinks the source to fit the box, then crops it centered to
	// the box's aspect ratio.
	FitCrop
)

// Spec describes one rendition.
type Spec struct {
	Variant      model.Variant
	Width        int
	Height       int
	Quality      int
	Policy       Policy
	Folder       string
	CacheControl string
}

// Specs lists the renditions produced for every upload.
var Specs = []Spec{
	{
		Variant: model.VariantThumbnail, Width: 150, Height: 150, Quality: 70,
		Policy: SquareCrop, Folder: "thumbnails", CacheControl: "public, max-age=86400",
	},
	{
		Variant: model.VariantMedium, Width: 800, Height: 600, Quality: 85,
		Policy: FitCrop, Folder: "medium", CacheControl: "public, max-age=604800",
	},
	{
		Variant: model.VariantLarge, Width: 1600, Height: 1200, Quality: 90,
		Policy: FitCrop, Folder: "large", CacheControl: "public, max-age=2592000",
	},
}

// SpecFor returns the rendition spec of v.
func SpecFor(v model.Variant) (Spec, bool) {
	for _, s := range Specs {
		if s.Variant == v {
			return s, true
		}
	}
	return Spec{}, false
}

var allowedExt = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

// Accept checks an upload before any bytes are decoded. declaredSize is the
// size reported by the client; values <= 0 mean unknown and are not checked.
func Accept(filename string, declaredSize int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return fmt.Errorf("%w: invalid file type %q, allowed: png, jpg, jpeg", model.ErrValidation, filename)
	}
	if declaredSize > MaxFileSize {
		return fmt.Errorf("%w: %s exceeds %d bytes", model.ErrValidation, filename, MaxFileSize)
	}
	return nil
}

// Deriver renders Specs from raw image bytes. The zero value is ready to use.
type Deriver struct {
	specs []Spec
}

// New returns a Deriver for the standard renditions.
func New() *Deriver {
	return &Deriver{specs: Specs}
}

// Derive decodes raw and returns one encoded JPEG per variant.
func (d *Deriver) Derive(raw []byte) (map[model.Variant][]byte, error) {
	specs := d.specs
	if specs == nil {
		specs = Specs
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %v", model.ErrProcessing, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: image is %dx%d, exceeds %d pixels", model.ErrProcessing, cfg.Width, cfg.Height, MaxPixels)
	}
	src, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %v", model.ErrProcessing, err)
	}
	flat := flatten(src)

	out := make(map[model.Variant][]byte, len(specs))
	for _, s := range specs {
		img := render(flat, s)
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(s.Quality)); err != nil {
			return nil, fmt.Errorf("%w: encode %s: %v", model.ErrProcessing, s.Variant, err)
		}
		out[s.Variant] = buf.Bytes()
	}
	return out, nil
}

// flatten converts src to an opaque truecolor image, dropping alpha and
// keeping the colour channels as they are.
func flatten(src image.Image) *image.NRGBA {
	dst := imaging.Clone(src)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

func render(src *image.NRGBA, s Spec) *image.NRGBA {
	switch s.Policy {
	case SquareCrop:
		b := src.Bounds()
		side := b.Dx()
		if b.Dy() < side {
			side = b.Dy()
		}
		square := imaging.CropCenter(src, side, side)
		return imaging.Fit(square, s.Width, s.Height, imaging.Lanczos)
	default:
		fitted := imaging.Fit(src, s.Width, s.Height, imaging.Lanczos)
		return cropToRatio(fitted, s.Width, s.Height)
	}
}

// cropToRatio crops img centered to the aspect ratio w:h, keeping as many
// pixels as possible.
func cropToRatio(img *image.NRGBA, w, h int) *image.NRGBA {
	b := img.Bounds()
	cw, ch := b.Dx(), b.Dy()
	if cw*h > ch*w {
		cw = ch * w / h
	} else {
		ch = cw * h / w
	}
	if cw == b.Dx() && ch == b.Dy() {
		return img
	}
	if cw < 1 {
		cw = 1
	}
	if ch < 1 {
		ch = 1
	}
	return imaging.CropCenter(img, cw, ch)
}
