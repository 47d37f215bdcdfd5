package core

import (
	"reflect"
	"testing"
)

func TestVectorLiteral(t *testing.T) {
	tests := []struct {
		in   Vector
		want string
	}{
		{nil, "[]"},
		{Vector{0.5}, "[0.5]"},
		{Vector{1, -0.25, 0}, "[1,-0.25,0]"},
	}
	for _, tt := range tests {
		if got := tt.in.Literal(); got != tt.want {
			t.Errorf("Literal(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVectorBytes(t *testing.T) {
	v := Vector{0.1, -2.5, 3e-7, 0}
	b := v.Bytes()
	if len(b) != 16 {
		t.Fatalf("expected 16 bytes, got %d", len(b))
	}
	got, err := VectorFromBytes(b)
	if err != nil {
		t.Fatalf("VectorFromBytes() error = %v", err)
	}
	if !reflect.DeepEqual(got, v) {
		t.Errorf("decoded %v, want %v", got, v)
	}

	if _, err := VectorFromBytes([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated blob")
	}
	if got, err := VectorFromBytes(nil); got != nil || err != nil {
		t.Errorf("VectorFromBytes(nil) = (%v, %v)", got, err)
	}
}
