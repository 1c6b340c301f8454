package photo

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeImage(t *testing.T, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	switch filepath.Ext(name) {
	case ".jpg":
		err = jpeg.Encode(f, img, nil)
	default:
		err = png.Encode(f, img)
	}
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return path
}

func TestInspectLandscapePNG(t *testing.T) {
	path := writeImage(t, "us.png", 400, 300)
	info, err := Inspect(path)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if info.Format != "png" || info.Width != 400 || info.Height != 300 {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.Crop != image.Rect(50, 0, 350, 300) {
		t.Fatalf("expected centred crop, got %v", info.Crop)
	}
}

func TestInspectPortraitJPEG(t *testing.T) {
	info, err := Inspect(writeImage(t, "us.jpg", 90, 120))
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if info.Format != "jpeg" || info.Crop != image.Rect(0, 15, 90, 105) {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestInspectDataURL(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 30, 30))); err != nil {
		t.Fatal(err)
	}
	ref := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	info, err := Inspect(ref)
	if err != nil {
		t.Fatalf("inspect data url: %v", err)
	}
	if info.Width != 30 || info.Crop.Dx() != 30 {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestInspectErrors(t *testing.T) {
	if _, err := Inspect("  "); !errors.Is(err, ErrEmptyReference) {
		t.Fatalf("expected empty reference error, got %v", err)
	}
	if _, err := Inspect(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Fatalf("expected missing file error")
	}
	bad := filepath.Join(t.TempDir(), "notes.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Inspect(bad); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestPieceBounds(t *testing.T) {
	info := Info{Crop: image.Rect(10, 0, 110, 100)}
	pieces, err := PieceBounds(info, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(pieces) != 9 {
		t.Fatalf("expected 9 pieces, got %d", len(pieces))
	}
	if pieces[0] != image.Rect(10, 0, 43, 33) {
		t.Fatalf("unexpected first piece %v", pieces[0])
	}
	if pieces[8] != image.Rect(76, 66, 110, 100) {
		t.Fatalf("last piece must absorb remainder, got %v", pieces[8])
	}
	if pieces[5].Min != image.Pt(76, 33) {
		t.Fatalf("pieces must be row-major, got %v", pieces[5])
	}
}

func TestValidateRejectsTinyPhoto(t *testing.T) {
	path := writeImage(t, "tiny.png", 2, 2)
	if _, err := Validate(path, 3); !errors.Is(err, ErrTooSmall) {
		t.Fatalf("expected too small, got %v", err)
	}
}
