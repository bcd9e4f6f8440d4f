package token

import (
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := NewCodec("test-secret")

	tests := []struct {
		name   string
		fields Fields
	}{
		{"simple", Fields{TID: "T-1700000000000-abc", UID: "u-1", Source: "Central", Destination: "Harbor"}},
		{"unicode stations", Fields{TID: "T-2", UID: "u-2", Source: "São Bento", Destination: "North–West"}},
		{"empty optional fields", Fields{TID: "T-3", UID: "u-3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := codec.Encode(tt.fields)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			got, err := codec.Decode(payload)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got != tt.fields {
				t.Errorf("Decode(Encode(%+v)) = %+v", tt.fields, got)
			}
			if got.TID != tt.fields.TID {
				t.Errorf("round trip lost tid: got %q want %q", got.TID, tt.fields.TID)
			}
		})
	}
}

func TestEncodeDeterministic(t *testing.T) {
	codec := NewCodec("test-secret")
	f := Fields{TID: "T-1", UID: "u-1", Source: "A", Destination: "B"}

	first, err := codec.Encode(f)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	second, err := codec.Encode(f)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if first != second {
		t.Errorf("Encode not deterministic:\n%s\n%s", first, second)
	}
}

func TestDecodeRejectsTamperedPayload(t *testing.T) {
	codec := NewCodec("test-secret")
	payload, err := codec.Encode(Fields{TID: "T-1", UID: "u-1", Source: "A", Destination: "B"})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	// Flip a character inside the claims segment; the signature no
	// longer matches.
	parts := strings.Split(payload, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected payload shape: %q", payload)
	}
	body := []byte(parts[1])
	if body[0] == 'A' {
		body[0] = 'B'
	} else {
		body[0] = 'A'
	}
	tampered := parts[0] + "." + string(body) + "." + parts[2]

	if _, err := codec.Decode(tampered); err == nil {
		t.Error("Decode() accepted a tampered payload")
	}
}

func TestDecodeRejectsWrongSecret(t *testing.T) {
	payload, err := NewCodec("secret-a").Encode(Fields{TID: "T-1", UID: "u-1"})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if _, err := NewCodec("secret-b").Decode(payload); err == nil {
		t.Error("Decode() accepted a payload signed with a different secret")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	codec := NewCodec("test-secret")
	for _, payload := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := codec.Decode(payload); err == nil {
			t.Errorf("Decode(%q) accepted garbage", payload)
		}
	}
}
