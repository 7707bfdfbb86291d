package capture

import (
	"errors"
	"strings"
	"testing"
)

func TestStripDataURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"data:image/jpeg;base64,QUJD", "QUJD"},
		{"data:image/png;base64,", ""},
		{"QUJD", "QUJD"},
		{"data:broken", "data:broken"},
	}
	for _, tt := range tests {
		if got := StripDataURL(tt.in); got != tt.want {
			t.Errorf("StripDataURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDecodeFrame_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"empty", "", ErrEmptyFrame},
		{"blank data url", "data:image/jpeg;base64,", ErrEmptyFrame},
		{"bad base64", "!!!not-base64", ErrMalformedFrame},
		{"not an image", "aGVsbG8gd29ybGQ=", ErrMalformedFrame},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mat, err := DecodeFrame(tt.data, 320, 240)
			if mat != nil {
				mat.Close()
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("DecodeFrame() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEncodeDecodeFrame(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	src := solidFrame(128)
	defer src.Close()

	encoded, err := EncodeFrame(&src, 90)
	if err != nil {
		t.Fatalf("EncodeFrame() error = %v", err)
	}
	if !strings.HasPrefix(encoded, "data:image/jpeg;base64,") {
		t.Fatalf("expected data URL, got %.30s", encoded)
	}

	tests := []struct {
		name          string
		data          string
		width, height int
	}{
		{"data url resized", encoded, 160, 120},
		{"bare base64 same size", StripDataURL(encoded), 320, 240},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mat, err := DecodeFrame(tt.data, tt.width, tt.height)
			if err != nil {
				t.Fatalf("DecodeFrame() error = %v", err)
			}
			defer mat.Close()
			if mat.Cols() != tt.width || mat.Rows() != tt.height {
				t.Errorf("decoded size %dx%d, want %dx%d", mat.Cols(), mat.Rows(), tt.width, tt.height)
			}
		})
	}
}

func TestEncodeFrame_Empty(t *testing.T) {
	if _, err := EncodeFrame(nil, 80); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("EncodeFrame(nil) error = %v, want ErrEmptyFrame", err)
	}
}
