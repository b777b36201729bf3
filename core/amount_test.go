package core

import (
	"errors"
	"testing"
)

func TestAmount_AddAndSub(t *testing.T) {
	sum, err := NewAmount(40).Add(NewAmount(2))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	assertAmount(t, "sum", sum, 42)

	diff, err := sum.Sub(NewAmount(42))
	if err != nil {
		t.Fatalf("sub: %v", err)
	}
	if !diff.IsZero() {
		t.Fatalf("expected zero, got %s", diff)
	}
}

func TestAmount_OverflowAndUnderflowDoNotWrap(t *testing.T) {
	if _, err := MaxAmount().Add(NewAmount(1)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := NewAmount(1).Sub(NewAmount(2)); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("expected underflow, got %v", err)
	}
	if _, err := SumAmounts(MaxAmount(), NewAmount(1)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow from sum, got %v", err)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "plain", raw: "10000000000", want: "10000000000"},
		{name: "trimmed", raw: "  7 ", want: "7"},
		{name: "max", raw: MaxAmount().String(), want: MaxAmount().String()},
		{name: "empty", raw: "", wantErr: true},
		{name: "negative", raw: "-1", wantErr: true},
		{name: "hex", raw: "0x10", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAmount(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected parse error for %q", tc.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse %q: %v", tc.raw, err)
			}
			if got.String() != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestAmount_TextRoundTrip(t *testing.T) {
	var amount Amount
	if err := amount.UnmarshalText([]byte("1000000")); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	text, err := amount.MarshalText()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(text) != "1000000" {
		t.Fatalf("expected 1000000, got %s", text)
	}
	if value, ok := amount.Uint64(); !ok || value != 1000000 {
		t.Fatalf("expected uint64 1000000, got %d %v", value, ok)
	}
	if _, ok := MaxAmount().Uint64(); ok {
		t.Fatalf("expected max amount to exceed uint64")
	}
}
