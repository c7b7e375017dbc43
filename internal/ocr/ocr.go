// Package ocr extracts text from uploaded proof images. The production
// implementation shells out to the tesseract CLI; callers depend on the
// Extractor interface so tests can substitute fakes.
package ocr

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNoText is returned when extraction succeeds but finds nothing usable.
var ErrNoText = fmt.Errorf("no text could be found in the image")

// Extractor pulls text out of an image file. The progress callback receives
// coarse 0-100 percentages; it may be nil.
type Extractor interface {
	Extract(ctx context.Context, imagePath string, progress func(pct int)) (string, error)
}

// imageExts are the upload formats accepted as proof.
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".webp": true,
}

// IsImagePath reports whether the file extension looks like a supported image.
func IsImagePath(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// Tesseract implements Extractor using the tesseract CLI.
type Tesseract struct {
	// Binary overrides the executable name, used in tests.
	Binary string
}

var _ Extractor = (*Tesseract)(nil)

// NewTesseract returns an Extractor backed by the system tesseract binary.
func NewTesseract() *Tesseract {
	return &Tesseract{Binary: "tesseract"}
}

// Extract runs OCR over the image and returns the recognized text.
// The CLI gives no incremental progress, so the callback is driven at the
// stage boundaries: validation, recognition started, done.
func (t *Tesseract) Extract(ctx context.Context, imagePath string, progress func(pct int)) (string, error) {
	report := func(pct int) {
		if progress != nil {
			progress(pct)
		}
	}

	report(0)

	if !IsImagePath(imagePath) {
		return "", fmt.Errorf("please upload an image file: %s", filepath.Base(imagePath))
	}

	bin := t.Binary
	if bin == "" {
		bin = "tesseract"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return "", fmt.Errorf("tesseract not installed: %w", err)
	}

	report(10)

	out, err := exec.CommandContext(ctx, bin, imagePath, "stdout").Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("tesseract: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("tesseract: %w", err)
	}

	report(90)

	text := strings.TrimSpace(string(out))
	if text == "" {
		return "", ErrNoText
	}

	report(100)
	return text, nil
}
