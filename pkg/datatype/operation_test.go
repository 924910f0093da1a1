package datatype

import (
	"encoding/json"
	"testing"
)

func TestRawOp_RoundTrip(t *testing.T) {
	// A journaled payload must survive decode and re-encode byte for byte.
	payload := `{"adds":["a","b"],"removes":["c"]}`

	var raw RawOp
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	out, err := json.Marshal(raw)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(out) != payload {
		t.Errorf("round trip = %s, want %s", out, payload)
	}
}

func TestRawOp_Empty(t *testing.T) {
	var raw RawOp

	out, err := json.Marshal(raw)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(out) != "null" {
		t.Errorf("Marshal(empty) = %s, want null", out)
	}
}
