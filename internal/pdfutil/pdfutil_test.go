package pdfutil

import "testing"

func TestIsPDF(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"pdf header", []byte("%PDF-1.7\n"), true},
		{"jpeg bytes", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}, false},
		{"empty", nil, false},
		{"truncated header", []byte("%PD"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPDF(tt.data); got != tt.want {
				t.Errorf("IsPDF() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPageCountRejectsGarbage(t *testing.T) {
	if _, err := PageCount([]byte("not a pdf")); err == nil {
		t.Error("expected error for non-PDF data")
	}
}
