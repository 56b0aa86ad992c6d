package upload

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func problems(t *testing.T, err error) []string {
	t.Helper()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	return ve.Problems
}

func TestValidateAccepts(t *testing.T) {
	d, err := Validate(File{Name: "bananas.png", Type: "image/png", Data: pngBytes(t, 200, 150)})
	require.NoError(t, err)
	assert.Equal(t, Dimensions{Width: 200, Height: 150}, d)
}

func TestValidateTypeAndName(t *testing.T) {
	_, err := Validate(File{
		Name: strings.Repeat("a", 101) + ".gif",
		Type: "image/gif",
		Data: []byte("GIF89a"),
	})
	assert.Equal(t, []string{
		"Invalid file type: image/gif. Allowed: JPEG, JPG, PNG, WEBP",
		"Filename too long: 105 characters. Maximum: 100 characters",
	}, problems(t, err))
}

func TestValidateSize(t *testing.T) {
	_, err := Validate(File{Name: "big.jpg", Type: "image/jpeg", Data: make([]byte, MaxFileSize+1)})
	assert.Equal(t, []string{"File too large: 5.00MB. Maximum allowed: 5MB"}, problems(t, err))
}

func TestValidateEmpty(t *testing.T) {
	_, err := Validate(File{Name: "empty.png", Type: "image/png"})
	assert.Equal(t, []string{"File is empty or corrupted"}, problems(t, err))
}

func TestValidateCorrupt(t *testing.T) {
	_, err := Validate(File{Name: "bad.png", Type: "image/png", Data: []byte("not an image")})
	assert.Equal(t, []string{"Invalid or corrupted image file"}, problems(t, err))
}

func TestValidateDimensions(t *testing.T) {
	_, err := Validate(File{Name: "tiny.png", Type: "image/png", Data: pngBytes(t, 50, 120)})
	assert.Equal(t, []string{"Image too small: 50x120px. Minimum: 100x100px"}, problems(t, err))

	d, err := Validate(File{Name: "strip.png", Type: "image/png", Data: pngBytes(t, 4097, 20)})
	assert.Equal(t, Dimensions{Width: 4097, Height: 20}, d)
	assert.Equal(t, []string{
		"Image too large: 4097x20px. Maximum: 4096x4096px",
		"Image too small: 4097x20px. Minimum: 100x100px",
	}, problems(t, err))
}

func TestTypeFor(t *testing.T) {
	assert.Equal(t, "image/png", TypeFor("a.PNG"))
	assert.Equal(t, "image/jpeg", TypeFor("a.jpg"))
	assert.Equal(t, "image/webp", TypeFor("a.webp"))
	assert.Equal(t, "", TypeFor("README"))
}

func TestFilename(t *testing.T) {
	now := time.UnixMilli(1740796200000)
	assert.Equal(t, "product_12_fruits_1740796200000.jpg", Filename(12, "fruits", "Banana.JPG", now))
	assert.Equal(t, "product_3_dairy_1740796200000.png", Filename(3, "dairy", "milk.final.png", now))
	assert.Equal(t, "product_3_dairy_1740796200000.photo", Filename(3, "dairy", "photo", now))

	assert.Equal(t, "assets/images/products/dairy/x.jpg", ImagePath("dairy", "x.jpg"))
}

func TestOptimalDimensions(t *testing.T) {
	tests := []struct {
		w, h int
		want Dimensions
	}{
		{400, 300, Dimensions{400, 300}},
		{800, 600, Dimensions{800, 600}},
		{1600, 1200, Dimensions{800, 600}},
		{1600, 900, Dimensions{800, 450}},
		{1000, 700, Dimensions{800, 560}},
		{900, 1200, Dimensions{450, 600}},
		{1000, 1000, Dimensions{600, 600}},
		{850, 300, Dimensions{800, 282}},
		{700, 601, Dimensions{699, 600}},
	}
	for _, tt := range tests {
		got := OptimalDimensions(tt.w, tt.h)
		assert.Equal(t, tt.want, got, "%dx%d", tt.w, tt.h)
	}
}

func TestOptimize(t *testing.T) {
	out, d, err := Optimize(pngBytes(t, 1000, 500))
	require.NoError(t, err)
	assert.Equal(t, Dimensions{Width: 800, Height: 400}, d)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 400, img.Bounds().Dy())
}

func TestDataURI(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,AQID", DataURI("image/png", []byte{1, 2, 3}))
}

func TestProcess(t *testing.T) {
	now := time.UnixMilli(1740796200000)
	res, err := Process(File{Name: "eggs.png", Type: "image/png", Data: pngBytes(t, 300, 200)}, 7, "dairy", now)
	require.NoError(t, err)

	assert.Equal(t, "product_7_dairy_1740796200000.png", res.Filename)
	assert.Equal(t, "assets/images/products/dairy/product_7_dairy_1740796200000.png", res.ImagePath)
	assert.Equal(t, Dimensions{300, 200}, res.Original)
	assert.Equal(t, Dimensions{300, 200}, res.Optimized)
	require.True(t, strings.HasPrefix(res.Payload, "data:image/jpeg;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(res.Payload, "data:image/jpeg;base64,"))
	require.NoError(t, err)
	assert.Equal(t, res.OptimizedSize, len(raw))
}

func TestProcessRejectsInvalid(t *testing.T) {
	_, err := Process(File{Name: "x.txt", Type: "text/plain", Data: []byte("hello")}, 1, "dairy", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid file type: text/plain")
}
