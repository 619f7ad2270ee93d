package utils

import (
	"testing"

	"github.com/google/uuid"
)

func TestHandleRoundTrip(t *testing.T) {
	id := uuid.New()
	handle := EncodeHandle(id)
	if handle == "" {
		t.Fatal("expected non-empty handle")
	}

	got, err := DecodeHandle(handle)
	if err != nil {
		t.Fatalf("DecodeHandle failed: %v", err)
	}
	if got != id {
		t.Errorf("expected %s, got %s", id, got)
	}
}

func TestParseRef(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		in      string
		number  int64
		id      uuid.UUID
		wantErr bool
	}{
		{in: "7", number: 7},
		{in: "0012", number: 12},
		{in: "SymPEP-0003", number: 3},
		{in: id.String(), id: id},
		{in: EncodeHandle(id), id: id},
		{in: "", wantErr: true},
		{in: "0", wantErr: true},
		{in: "-4", wantErr: true},
		{in: "not a ref!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ref, err := ParseRef(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseRef(%q) expected error, got %+v", tt.in, ref)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRef(%q) failed: %v", tt.in, err)
			}
			if ref.Number != tt.number || ref.ID != tt.id {
				t.Errorf("ParseRef(%q) = %+v, want number=%d id=%s", tt.in, ref, tt.number, tt.id)
			}
		})
	}
}

func TestFormatNumber(t *testing.T) {
	if got := FormatNumber(7); got != "SymPEP-0007" {
		t.Errorf("expected SymPEP-0007, got %s", got)
	}
}
