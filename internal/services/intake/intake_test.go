package intake

import (
	"testing"
)

func TestStorageExt(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"invoice.pdf", ".pdf"},
		{"INVOICE.PDF", ".pdf"},
		{"scan.png", ".png"},
		{"photo.JPEG", ".jpeg"},
		{"no-extension", ".pdf"},
		{"weird.exe", ".pdf"},
		{"", ".pdf"},
	}
	for _, c := range cases {
		if got := storageExt(c.name); got != c.want {
			t.Errorf("storageExt(%q) = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestIsPDFAttachment(t *testing.T) {
	cases := []struct {
		fileName    string
		contentType string
		want        bool
	}{
		{"invoice.pdf", "", true},
		{"INVOICE.PDF", "application/octet-stream", true},
		{"invoice.bin", "application/pdf", true},
		{"invoice.bin", "APPLICATION/PDF", true},
		{"photo.jpg", "image/jpeg", false},
		{"", "", false},
	}
	for _, c := range cases {
		if got := isPDFAttachment(c.fileName, c.contentType); got != c.want {
			t.Errorf("isPDFAttachment(%q, %q) = %v, want %v", c.fileName, c.contentType, got, c.want)
		}
	}
}

func TestEscapeDriveName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Chemco Trading", "Chemco Trading"},
		{"O'Brien & Sons", `O\'Brien & Sons`},
		{`back\slash`, `back\\slash`},
	}
	for _, c := range cases {
		if got := escapeDriveName(c.in); got != c.want {
			t.Errorf("escapeDriveName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestHashBytesIsStable(t *testing.T) {
	a := hashBytes([]byte("same content"))
	b := hashBytes([]byte("same content"))
	if a != b {
		t.Errorf("hash not deterministic: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(a))
	}
	if a == hashBytes([]byte("other content")) {
		t.Error("different content produced the same hash")
	}
}
