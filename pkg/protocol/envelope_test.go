package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	env := &Envelope{
		Channel:  "chan-7f3a",
		Endpoint: 423871,
		Payload:  `{"uid":99,"newGeometry":"{}"}`,
		Service:  ServiceGeometryUpdate,
	}

	data, err := EncodeEnvelope(env)
	if err != nil {
		t.Fatalf("EncodeEnvelope() error: %v", err)
	}

	decoded, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("DecodeEnvelope() error: %v", err)
	}
	if *decoded != *env {
		t.Errorf("round trip = %+v, want %+v", decoded, env)
	}
	if decoded.IsHandshake() {
		t.Error("IsHandshake() = true for a standard envelope")
	}
}

func TestEnvelopeWireKeys(t *testing.T) {
	env := &Envelope{
		Channel:  "chan-1",
		Sentinel: "slot_3",
		Endpoint: 5,
		Payload:  "{}",
		Service:  ServiceConnect,
	}

	data, err := EncodeEnvelope(env)
	if err != nil {
		t.Fatalf("EncodeEnvelope() error: %v", err)
	}

	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		t.Fatalf("envelope is not flat JSON: %v", err)
	}

	for _, key := range []string{"c", "e", "i", "p", "s"} {
		if _, ok := flat[key]; !ok {
			t.Errorf("envelope missing wire key %q", key)
		}
	}
	if len(flat) != 5 {
		t.Errorf("envelope has %d keys, want 5: %v", len(flat), flat)
	}
}

func TestDecodeEnvelopeHandshake(t *testing.T) {
	data := []byte(`{"c":"chan-9","e":"slot_1","s":"connect"}`)

	env, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("DecodeEnvelope() error: %v", err)
	}
	if !env.IsHandshake() {
		t.Error("IsHandshake() = false for an envelope with a top-level sentinel")
	}
	if env.Sentinel != "slot_1" {
		t.Errorf("Sentinel = %q, want %q", env.Sentinel, "slot_1")
	}
	if env.Channel != "chan-9" {
		t.Errorf("Channel = %q, want %q", env.Channel, "chan-9")
	}
}

func TestDecodeEnvelopeMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"not json", []byte("postMessage garbage")},
		{"json array", []byte(`[1,2,3]`)},
		{"empty object", []byte(`{}`)},
		{"service and sentinel both missing", []byte(`{"c":"chan-1","p":"{}"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeEnvelope(tt.data); err == nil {
				t.Errorf("DecodeEnvelope(%q) succeeded, want error", tt.data)
			}
		})
	}
}

func TestDecodeEnvelopeTooLarge(t *testing.T) {
	data := bytes.Repeat([]byte("x"), MaxEnvelopeSize+1)
	if _, err := DecodeEnvelope(data); !errors.Is(err, ErrEnvelopeTooLarge) {
		t.Errorf("DecodeEnvelope(oversized) error = %v, want ErrEnvelopeTooLarge", err)
	}
}

func TestEncodeEnvelopeMissingService(t *testing.T) {
	if _, err := EncodeEnvelope(&Envelope{Channel: "c"}); !errors.Is(err, ErrMissingService) {
		t.Errorf("EncodeEnvelope(no service) error = %v, want ErrMissingService", err)
	}
}
