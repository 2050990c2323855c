package tile

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
)

// PNG IHDR color types
const (
	pngColorRGB  = 2
	pngColorRGBA = 6
)

func pngColorType(t *testing.T, path string) byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	// 8 byte signature, 8 byte chunk header, width, height, bit depth
	return data[25]
}

func TestWritePNGOpaqueHasNoAlpha(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "opaque.png")

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	if err := WritePNG(path, img); err != nil {
		t.Fatalf("WritePNG failed: %v", err)
	}

	if ct := pngColorType(t, path); ct != pngColorRGB {
		t.Errorf("color type = %d, want RGB", ct)
	}
}

func TestWritePNGKeepsAlpha(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alpha.png")

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	if err := WritePNG(path, img); err != nil {
		t.Fatalf("WritePNG failed: %v", err)
	}

	if ct := pngColorType(t, path); ct != pngColorRGBA {
		t.Errorf("color type = %d, want RGBA", ct)
	}

	decoded, err := ReadImage(path)
	if err != nil {
		t.Fatalf("ReadImage failed: %v", err)
	}
	if _, _, _, a := decoded.At(1, 1).RGBA(); a != 0 {
		t.Errorf("alpha at (1,1) = %d, want 0", a)
	}
	if r, _, _, a := decoded.At(0, 0).RGBA(); r>>8 != 255 || a>>8 != 255 {
		t.Errorf("pixel (0,0) = %v, want opaque red", decoded.At(0, 0))
	}
}

func TestWritePNGLeavesNoTemporaries(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		if err := WritePNG(filepath.Join(dir, "tile.png"), image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
			t.Fatalf("WritePNG failed: %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "tile.png" {
		t.Errorf("unexpected directory contents: %v", entries)
	}
}

func TestDecodeImage(t *testing.T) {
	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, image.NewRGBA(image.Rect(0, 0, 3, 2)), nil); err != nil {
		t.Fatalf("jpeg.Encode failed: %v", err)
	}
	img, err := DecodeImage(jpg.Bytes())
	if err != nil {
		t.Fatalf("DecodeImage(jpeg) failed: %v", err)
	}
	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
		t.Errorf("jpeg bounds = %v", img.Bounds())
	}

	var png bytes.Buffer
	if err := EncodePNG(&png, image.NewRGBA(image.Rect(0, 0, 5, 1))); err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	img, err = DecodeImage(png.Bytes())
	if err != nil {
		t.Fatalf("DecodeImage(png) failed: %v", err)
	}
	if img.Bounds().Dx() != 5 {
		t.Errorf("png bounds = %v", img.Bounds())
	}

	for _, data := range [][]byte{nil, []byte("GIF89a"), []byte("RIFF\x00\x00\x00\x00WAVE")} {
		if _, err := DecodeImage(data); !errors.Is(err, ErrUnknownFormat) {
			t.Errorf("DecodeImage(%q) error = %v, want ErrUnknownFormat", data, err)
		}
	}

	// Signature matches but the payload is broken
	if _, err := DecodeImage([]byte("RIFF\x10\x00\x00\x00WEBPVP8 ")); err == nil {
		t.Error("expected error for truncated webp")
	}
}
