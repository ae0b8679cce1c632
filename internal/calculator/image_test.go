package calculator

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// canvasDataURL draws a white stroke on a transparent canvas, the way the
// frontend's toDataURL output looks.
func canvasDataURL(t testing.TB, width, height int) string {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for x := width / 4; x < width*3/4; x++ {
		img.Set(x, height/2, color.White)
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func blankDataURL(t testing.TB) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 8, 8))))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// hugeDataURL returns a 1x1 PNG whose IHDR claims width x height pixels.
// Only the header is rewritten, so the payload stays a few dozen bytes.
func hugeDataURL(t testing.TB, width, height uint32) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	data := buf.Bytes()

	// signature(8) | length(4) | "IHDR"(4) | width(4) | height(4) | ... | crc(4)
	ihdr := data[12 : 12+4+13]
	binary.BigEndian.PutUint32(ihdr[4:8], width)
	binary.BigEndian.PutUint32(ihdr[8:12], height)
	binary.BigEndian.PutUint32(data[12+4+13:], crc32.ChecksumIEEE(ihdr))

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
}

func TestDecodeDataURL(t *testing.T) {
	dataURL := canvasDataURL(t, 40, 20)

	img, err := DecodeDataURL(dataURL)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 20, img.Bounds().Dy())

	_, bare, _ := bytes.Cut([]byte(dataURL), []byte(","))
	img, err = DecodeDataURL(string(bare))
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
}

func TestDecodeDataURLRejectsBadInput(t *testing.T) {
	cases := map[string]struct {
		input string
		want  error
	}{
		"empty":         {"   ", ErrEmptyImage},
		"no separator":  {"data:image/png;base64", ErrInvalidImage},
		"not base64":    {"data:image/png,rawbytes", ErrInvalidImage},
		"wrong media":   {"data:text/plain;base64,aGVsbG8=", ErrInvalidImage},
		"garbage":       {"data:image/png;base64,!!!!", ErrInvalidImage},
		"not an image":  {"data:image/png;base64,aGVsbG8gd29ybGQ=", ErrInvalidImage},
		"empty payload": {"data:image/png;base64,", ErrEmptyImage},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeDataURL(tc.input)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestDecodeDataURLRejectsOversizedDimensions(t *testing.T) {
	cases := map[string][2]uint32{
		"square":     {8000, 8000},
		"wide strip": {MaxInputPixels + 1, 1},
		"just over":  {4096, 4097},
	}

	for name, dims := range cases {
		t.Run(name, func(t *testing.T) {
			dataURL := hugeDataURL(t, dims[0], dims[1])
			require.Less(t, len(dataURL), 256)

			_, err := DecodeDataURL(dataURL)
			require.ErrorIs(t, err, ErrInvalidImage)
		})
	}
}

func TestDecodeDataURLAcceptsLimit(t *testing.T) {
	img, err := DecodeDataURL(canvasDataURL(t, 4096, 2))
	require.NoError(t, err)
	assert.Equal(t, 4096, img.Bounds().Dx())
}

func TestNormalizeFlattensAndResizes(t *testing.T) {
	img, err := DecodeDataURL(canvasDataURL(t, 400, 100))
	require.NoError(t, err)

	out, err := Normalize(img, 200)
	require.NoError(t, err)

	decoded, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 200, decoded.Bounds().Dx())
	assert.Equal(t, 50, decoded.Bounds().Dy())

	r, g, b, a := decoded.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), a, "background must be opaque")
	assert.Zero(t, r+g+b, "background must be black")
}

func TestNormalizeKeepsSmallImages(t *testing.T) {
	img, err := DecodeDataURL(canvasDataURL(t, 64, 32))
	require.NoError(t, err)

	out, err := Normalize(img, 1024)
	require.NoError(t, err)

	decoded, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 32), decoded.Bounds())
}

func TestNormalizeRejectsBlankCanvas(t *testing.T) {
	img, err := DecodeDataURL(blankDataURL(t))
	require.NoError(t, err)

	_, err = Normalize(img, 0)
	require.ErrorIs(t, err, ErrEmptyImage)
}
