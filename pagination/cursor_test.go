package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		cursor Cursor
	}{
		{
			name:   "value only",
			cursor: Cursor{Value: "0198a2b4-7c3d-7e5f-8a9b-0c1d2e3f4a5b"},
		},
		{
			name:   "string sort value",
			cursor: Cursor{Value: "42", SortValue: "2024-01-15T10:30:00Z"},
		},
		{
			name:   "integer sort value",
			cursor: Cursor{Value: "abc", SortValue: int64(12345)},
		},
		{
			name:   "float sort value",
			cursor: Cursor{Value: "abc", SortValue: float64(12.5)},
		},
		{
			name:   "bool sort value",
			cursor: Cursor{Value: "abc", SortValue: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := Encode(tt.cursor)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			decoded, err := Decode(encoded)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}

			if decoded.Value != tt.cursor.Value {
				t.Errorf("Value = %q, want %q", decoded.Value, tt.cursor.Value)
			}
			if decoded.SortValue != tt.cursor.SortValue {
				t.Errorf("SortValue = %v (%T), want %v (%T)",
					decoded.SortValue, decoded.SortValue, tt.cursor.SortValue, tt.cursor.SortValue)
			}
		})
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	c := Cursor{Value: "abc", SortValue: "2024-01-15T10:30:00Z"}

	first, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Encode(c)
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		if again != first {
			t.Fatalf("Encode() not deterministic: %q != %q", again, first)
		}
	}
}

func TestEncodeStringifiesTimeSortValue(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 0, 123456000, time.UTC)

	encoded, err := Encode(Cursor{Value: "abc", SortValue: ts})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	str, ok := decoded.SortValue.(string)
	if !ok {
		t.Fatalf("SortValue = %T, want string", decoded.SortValue)
	}

	parsed, err := time.Parse(time.RFC3339Nano, str)
	if err != nil {
		t.Fatalf("sort value %q is not RFC3339: %v", str, err)
	}
	if !parsed.Equal(ts) {
		t.Errorf("round-tripped time = %v, want %v", parsed, ts)
	}
}

func TestDecodeAcceptsPaddedBase64(t *testing.T) {
	payload := []byte(`{"value": "abc"}`)
	padded := base64.URLEncoding.EncodeToString(payload)
	if !strings.Contains(padded, "=") {
		t.Fatalf("test payload did not produce padding: %q", padded)
	}

	decoded, err := Decode(padded)
	if err != nil {
		t.Fatalf("Decode(padded) error = %v", err)
	}
	if decoded.Value != "abc" {
		t.Errorf("Value = %q, want %q", decoded.Value, "abc")
	}
}

func TestDecodeNormalizesIntegerValue(t *testing.T) {
	encoded := base64.RawURLEncoding.EncodeToString([]byte(`{"value":42}`))

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if decoded.Value != "42" {
		t.Errorf("Value = %q, want %q", decoded.Value, "42")
	}
}

func TestDecodeRejections(t *testing.T) {
	encode := func(payload string) string {
		return base64.RawURLEncoding.EncodeToString([]byte(payload))
	}

	tests := []struct {
		name    string
		encoded string
	}{
		{"empty", ""},
		{"too long", strings.Repeat("A", MaxEncodedLength+1)},
		{"not base64url", "!!!not-base64!!!"},
		{"oversized payload", encode(`{"value":"` + strings.Repeat("x", MaxDecodedLength) + `"}`)},
		{"json array", encode(`["value"]`)},
		{"json scalar", encode(`"value"`)},
		{"not json", encode(`{{{{`)},
		{"unknown key", encode(`{"value":"abc","evil":"x"}`)},
		{"missing value", encode(`{"sort_value":"abc"}`)},
		{"value is float", encode(`{"value":3.5}`)},
		{"value is bool", encode(`{"value":true}`)},
		{"value is object", encode(`{"value":{"a":1}}`)},
		{"sort value is object", encode(`{"value":"abc","sort_value":{"a":1}}`)},
		{"sort value is array", encode(`{"value":"abc","sort_value":[1,2]}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.encoded)
			if err == nil {
				t.Fatal("Decode() succeeded, want error")
			}
			if !errors.Is(err, ErrInvalidCursor) {
				t.Errorf("error %v does not wrap ErrInvalidCursor", err)
			}
		})
	}
}

func TestDecodeLengthLimitAppliesBeforeDecoding(t *testing.T) {
	// A giant token must be rejected on length alone, even if it would
	// otherwise decode cleanly.
	huge := base64.RawURLEncoding.EncodeToString([]byte(`{"value":"` + strings.Repeat("a", 2048) + `"}`))
	if len(huge) <= MaxEncodedLength {
		t.Fatalf("test token too short: %d", len(huge))
	}

	_, err := Decode(huge)
	if !errors.Is(err, ErrInvalidCursor) {
		t.Fatalf("error = %v, want ErrInvalidCursor", err)
	}
	if !strings.Contains(err.Error(), "1024") {
		t.Errorf("error %q should mention the length limit", err)
	}
}

func TestDecodeNullSortValue(t *testing.T) {
	encoded := base64.RawURLEncoding.EncodeToString([]byte(`{"value":"abc","sort_value":null}`))

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if decoded.SortValue != nil {
		t.Errorf("SortValue = %v, want nil", decoded.SortValue)
	}
}
