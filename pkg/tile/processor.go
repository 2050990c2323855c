package tile

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/webp"
)

// ErrUnknownFormat is returned when image data matches none of the supported signatures
var ErrUnknownFormat = errors.New("unrecognized image format")

var (
	pngSignature  = []byte{0x89, 0x50, 0x4E, 0x47}
	jpegSignature = []byte{0xFF, 0xD8}
	riffSignature = []byte("RIFF")
	webpSignature = []byte("WEBP")
)

// DecodeImage detects the image format from its signature and decodes it
func DecodeImage(data []byte) (image.Image, error) {
	switch {
	case bytes.HasPrefix(data, pngSignature):
		return png.Decode(bytes.NewReader(data))
	case bytes.HasPrefix(data, jpegSignature):
		return jpeg.Decode(bytes.NewReader(data))
	case len(data) >= 12 && bytes.Equal(data[:4], riffSignature) && bytes.Equal(data[8:12], webpSignature):
		return webp.Decode(bytes.NewReader(data))
	}
	return nil, ErrUnknownFormat
}

// ReadImage reads and decodes the image stored at path
func ReadImage(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// EncodePNG writes img as a losslessly compressed PNG. Images whose pixels are
// all opaque are stored without an alpha channel.
func EncodePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	return enc.Encode(w, img)
}

// WritePNG encodes img and stores it at filename. The data goes to a temporary
// file in the same directory first and is renamed into place once complete,
// so filename either holds a whole image or does not exist.
func WritePNG(filename string, img image.Image) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filename)+".*.tmp")
	if err != nil {
		return err
	}
	// No-op once the rename succeeded
	defer os.Remove(tmp.Name())

	if err := EncodePNG(tmp, img); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", filename, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), filename)
}
