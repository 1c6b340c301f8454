package photo

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"
)

var (
	ErrEmptyReference = errors.New("photo reference is empty")
	ErrTooSmall       = errors.New("photo is smaller than the puzzle grid")
)

// Info describes a usable photo: its decoded size and the centred square
// the puzzle is cut from.
type Info struct {
	Reference string
	Format    string
	Width     int
	Height    int
	Crop      image.Rectangle
}

// Inspect reads only the image header of ref, which is either a file path or
// a base64 data URL as stored by older releases.
func Inspect(ref string) (Info, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Info{}, ErrEmptyReference
	}
	var r io.Reader
	if strings.HasPrefix(ref, "data:") {
		raw, err := decodeDataURL(ref)
		if err != nil {
			return Info{}, err
		}
		r = bytes.NewReader(raw)
	} else {
		f, err := os.Open(ref)
		if err != nil {
			return Info{}, fmt.Errorf("open photo: %w", err)
		}
		defer f.Close()
		r = f
	}
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return Info{}, fmt.Errorf("decode photo %s: %w", displayRef(ref), err)
	}
	return Info{
		Reference: ref,
		Format:    format,
		Width:     cfg.Width,
		Height:    cfg.Height,
		Crop:      SquareCrop(cfg.Width, cfg.Height),
	}, nil
}

func decodeDataURL(ref string) ([]byte, error) {
	header, payload, ok := strings.Cut(ref, ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("photo data url: expected base64 payload")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("photo data url: %w", err)
	}
	return raw, nil
}

func displayRef(ref string) string {
	if strings.HasPrefix(ref, "data:") {
		return "data url"
	}
	return ref
}

// SquareCrop returns the largest centred square inside a w x h image.
func SquareCrop(w, h int) image.Rectangle {
	side := min(w, h)
	x0 := (w - side) / 2
	y0 := (h - side) / 2
	return image.Rect(x0, y0, x0+side, y0+side)
}

// PieceBounds cuts the crop into gridSize x gridSize pieces in row-major
// order, so piece id n is element n-1. The last row and column absorb any
// remainder pixels.
func PieceBounds(info Info, gridSize int) ([]image.Rectangle, error) {
	crop := info.Crop
	side := crop.Dx()
	if gridSize < 1 || side < gridSize {
		return nil, fmt.Errorf("grid %dx%d on %dpx: %w", gridSize, gridSize, side, ErrTooSmall)
	}
	step := side / gridSize
	out := make([]image.Rectangle, 0, gridSize*gridSize)
	for row := 0; row < gridSize; row++ {
		for col := 0; col < gridSize; col++ {
			x0 := crop.Min.X + col*step
			y0 := crop.Min.Y + row*step
			x1, y1 := x0+step, y0+step
			if col == gridSize-1 {
				x1 = crop.Max.X
			}
			if row == gridSize-1 {
				y1 = crop.Max.Y
			}
			out = append(out, image.Rect(x0, y0, x1, y1))
		}
	}
	return out, nil
}

// Validate inspects ref and checks it can be cut into the grid.
func Validate(ref string, gridSize int) (Info, error) {
	info, err := Inspect(ref)
	if err != nil {
		return Info{}, err
	}
	if _, err := PieceBounds(info, gridSize); err != nil {
		return Info{}, err
	}
	return info, nil
}
