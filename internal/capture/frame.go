package capture

import (
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	"gocv.io/x/gocv"
)

var (
	// ErrEmptyFrame is returned for a frame with no payload.
	ErrEmptyFrame = errors.New("empty frame data")
	// ErrMalformedFrame is returned when the payload is not a decodable image.
	ErrMalformedFrame = errors.New("malformed frame")
)

const jpegDataURL = "data:image/jpeg;base64,"

// StripDataURL removes a "data:<mime>;base64," prefix if present.
func StripDataURL(data string) string {
	if !strings.HasPrefix(data, "data:") {
		return data
	}
	if i := strings.IndexByte(data, ','); i >= 0 {
		return data[i+1:]
	}
	return data
}

// DecodeFrame turns a base64 image, optionally wrapped in a data URL, into
// a BGR Mat of the given size. The caller closes the returned Mat.
func DecodeFrame(data string, width, height int) (*gocv.Mat, error) {
	payload := strings.TrimSpace(StripDataURL(strings.TrimSpace(data)))
	if payload == "" {
		return nil, ErrEmptyFrame
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", ErrMalformedFrame, err)
	}

	mat, err := gocv.IMDecode(raw, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("%w: not an image", ErrMalformedFrame)
	}

	if width > 0 && height > 0 && (mat.Cols() != width || mat.Rows() != height) {
		resized := gocv.NewMat()
		gocv.Resize(mat, &resized, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)
		mat.Close()
		return &resized, nil
	}
	return &mat, nil
}

// EncodeFrame encodes a frame as a JPEG data URL.
func EncodeFrame(frame *gocv.Mat, quality int) (string, error) {
	if frame == nil || frame.Empty() {
		return "", ErrEmptyFrame
	}
	if quality <= 0 || quality > 100 {
		quality = 80
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *frame, []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return "", fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	return jpegDataURL + base64.StdEncoding.EncodeToString(buf.GetBytes()), nil
}
