// Package qrimage renders scannable credential images. The scan engine only
// depends on the Renderer contract; the PNG implementation lives here so the
// core stays free of imaging concerns.
package qrimage

import (
	"fmt"
	"os"
	"path/filepath"

	qrcode "github.com/skip2/go-qrcode"
)

// Renderer produces and removes credential images addressed by code value.
type Renderer interface {
	// Render writes an image encoding the code value and returns its path.
	Render(code string) (string, error)
	// Remove deletes the image for a code value. Missing files are not errors.
	Remove(code string) error
	// Path returns the on-disk location for a code value without rendering.
	Path(code string) string
}

// PNGRenderer writes QR code PNGs into a flat directory, one file per code
// value, so download handlers can address images without a database hit.
type PNGRenderer struct {
	dir string
}

func NewPNGRenderer(dir string) (*PNGRenderer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create qr image dir: %w", err)
	}
	return &PNGRenderer{dir: dir}, nil
}

func (r *PNGRenderer) path(code string) string {
	return filepath.Join(r.dir, code+".png")
}

func (r *PNGRenderer) Render(code string) (string, error) {
	path := r.path(code)
	if err := qrcode.WriteFile(code, qrcode.Low, 256, path); err != nil {
		return "", fmt.Errorf("render qr image: %w", err)
	}
	return path, nil
}

func (r *PNGRenderer) Remove(code string) error {
	err := os.Remove(r.path(code))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove qr image: %w", err)
	}
	return nil
}

// Path returns the on-disk location for a code value without rendering.
func (r *PNGRenderer) Path(code string) string {
	return r.path(code)
}
