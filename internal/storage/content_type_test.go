package storage

import "testing"

func TestDetectContentType(t *testing.T) {
	testCases := []struct {
		name        string
		contentType string
		key         string
		want        string
	}{
		{"explicit wins", "application/x-custom", "a.pdf", "application/x-custom"},
		{"pdf extension", "", "documents/u1/a.pdf", "application/pdf"},
		{"json extension", "", "meta.json", "application/json"},
		{"mp4 extension", "", "animations/a.mp4", "video/mp4"},
		{"unknown extension", "", "a.bin", "application/octet-stream"},
		{"no extension", "", "document", "application/octet-stream"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectContentType(tc.contentType, tc.key); got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestIsPDF(t *testing.T) {
	if !IsPDF([]byte("%PDF-1.7\n...")) {
		t.Error("expected PDF magic to be recognized")
	}
	if IsPDF([]byte("GIF89a")) {
		t.Error("expected non-PDF data to be rejected")
	}
	if IsPDF(nil) {
		t.Error("expected empty data to be rejected")
	}
}
