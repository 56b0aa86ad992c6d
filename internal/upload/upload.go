package upload

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"math"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// MaxFileSize is the largest accepted upload in bytes.
	MaxFileSize = 5 * 1024 * 1024
	// MaxDimension bounds width and height in pixels.
	MaxDimension = 4096
	// MinDimension is the smallest accepted width and height.
	MinDimension = 100
	// MaxFilenameLength bounds the original filename.
	MaxFilenameLength = 100

	// OptimalWidth and OptimalHeight bound optimized images.
	OptimalWidth  = 800
	OptimalHeight = 600

	// JPEGQuality is the re-encoding quality.
	JPEGQuality = 85
)

// AllowedTypes lists the accepted MIME types.
var AllowedTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/webp"}

// File is an upload as received from the admin form.
type File struct {
	Name string
	Type string
	Data []byte
}

// TypeFor guesses the MIME type from a filename extension.
func TypeFor(name string) string {
	t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return t
}

// Dimensions is an image size in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ValidationError lists every problem with an upload.
type ValidationError struct {
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "invalid image: " + strings.Join(e.Problems, "; ")
}

// Validate checks f and returns its pixel dimensions. Type, size, and
// name problems are reported together; dimensions are checked only when
// those pass.
func Validate(f File) (Dimensions, error) {
	var problems []string

	size := len(f.Data)
	if size > MaxFileSize {
		problems = append(problems, fmt.Sprintf("File too large: %.2fMB. Maximum allowed: %dMB",
			float64(size)/1024/1024, MaxFileSize/1024/1024))
	}
	if !allowed(f.Type) {
		names := make([]string, len(AllowedTypes))
		for i, t := range AllowedTypes {
			names[i] = strings.ToUpper(strings.TrimPrefix(t, "image/"))
		}
		problems = append(problems, fmt.Sprintf("Invalid file type: %s. Allowed: %s", f.Type, strings.Join(names, ", ")))
	}
	if n := len([]rune(f.Name)); n > MaxFilenameLength {
		problems = append(problems, fmt.Sprintf("Filename too long: %d characters. Maximum: %d characters", n, MaxFilenameLength))
	}
	if size == 0 {
		problems = append(problems, "File is empty or corrupted")
	}
	if len(problems) > 0 {
		return Dimensions{}, &ValidationError{Problems: problems}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(f.Data))
	if err != nil {
		return Dimensions{}, &ValidationError{Problems: []string{"Invalid or corrupted image file"}}
	}
	d := Dimensions{Width: cfg.Width, Height: cfg.Height}

	if d.Width > MaxDimension || d.Height > MaxDimension {
		problems = append(problems, fmt.Sprintf("Image too large: %dx%dpx. Maximum: %dx%dpx",
			d.Width, d.Height, MaxDimension, MaxDimension))
	}
	if d.Width < MinDimension || d.Height < MinDimension {
		problems = append(problems, fmt.Sprintf("Image too small: %dx%dpx. Minimum: %dx%dpx",
			d.Width, d.Height, MinDimension, MinDimension))
	}
	if len(problems) > 0 {
		return d, &ValidationError{Problems: problems}
	}
	return d, nil
}

func allowed(mimeType string) bool {
	for _, t := range AllowedTypes {
		if t == mimeType {
			return true
		}
	}
	return false
}

// Filename returns product_<id>_<category>_<millis>.<ext>, taking the
// lowercased extension from the original name.
func Filename(productID int64, category, original string, now time.Time) string {
	ext := original
	if i := strings.LastIndexByte(original, '.'); i >= 0 {
		ext = original[i+1:]
	}
	return fmt.Sprintf("product_%d_%s_%d.%s", productID, category, now.UnixMilli(), strings.ToLower(ext))
}

// ImagePath returns where a stored image would live on the site.
func ImagePath(category, filename string) string {
	return "assets/images/products/" + category + "/" + filename
}

// OptimalDimensions fits w x h inside OptimalWidth x OptimalHeight,
// keeping the aspect ratio and rounding to whole pixels. Images already
// inside the bounds are unchanged; nothing is upscaled.
func OptimalDimensions(w, h int) Dimensions {
	if w <= 0 || h <= 0 {
		return Dimensions{Width: w, Height: h}
	}
	if w <= OptimalWidth && h <= OptimalHeight {
		return Dimensions{Width: w, Height: h}
	}

	scale := math.Min(float64(OptimalWidth)/float64(w), float64(OptimalHeight)/float64(h))
	return Dimensions{
		Width:  int(math.Round(float64(w) * scale)),
		Height: int(math.Round(float64(h) * scale)),
	}
}

// Optimize decodes data, scales it to OptimalDimensions, and re-encodes
// it as JPEG.
func Optimize(data []byte) ([]byte, Dimensions, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, Dimensions{}, fmt.Errorf("decode image: %w", err)
	}

	b := src.Bounds()
	d := OptimalDimensions(b.Dx(), b.Dy())
	dst := image.NewRGBA(image.Rect(0, 0, d.Width, d.Height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, Dimensions{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), d, nil
}

// DataURI wraps data in a base64 data URI.
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Result describes a processed upload.
type Result struct {
	Payload       string     `json:"-"`
	Filename      string     `json:"filename"`
	ImagePath     string     `json:"image_path"`
	Original      Dimensions `json:"original"`
	Optimized     Dimensions `json:"optimized"`
	OriginalSize  int        `json:"original_size"`
	OptimizedSize int        `json:"optimized_size"`
}

// Process validates and optimizes f for productID and returns the
// payload ready for the image store.
func Process(f File, productID int64, category string, now time.Time) (Result, error) {
	orig, err := Validate(f)
	if err != nil {
		return Result{}, err
	}
	data, d, err := Optimize(f.Data)
	if err != nil {
		return Result{}, fmt.Errorf("image processing failed: %w", err)
	}

	name := Filename(productID, category, f.Name, now)
	return Result{
		Payload:       DataURI("image/jpeg", data),
		Filename:      name,
		ImagePath:     ImagePath(category, name),
		Original:      orig,
		Optimized:     d,
		OriginalSize:  len(f.Data),
		OptimizedSize: len(data),
	}, nil
}
