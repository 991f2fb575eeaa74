// Package pagination implements stateless cursor pagination: an opaque,
// security-hardened cursor codec plus page assembly helpers.
//
// A cursor marks the last seen position in an ordered result stream. It is
// encoded as canonical JSON (stable key order) wrapped in base64url, carries
// no server-side state, and is validated defensively on decode: oversized
// tokens, unknown keys, and non-scalar payloads are all rejected before any
// value reaches a query.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

const (
	// MaxEncodedLength is the maximum accepted length of an encoded cursor.
	MaxEncodedLength = 1024

	// MaxDecodedLength is the maximum accepted size of the decoded payload.
	MaxDecodedLength = 768

	// DefaultLimit is the page size used when the caller does not provide one.
	DefaultLimit = 20

	// MaxLimit bounds the page size a caller may request.
	MaxLimit = 100

	// MaxOffset bounds the skip value for offset pagination.
	MaxOffset = 10000
)

// ErrInvalidCursor reports a malformed, oversized, or non-whitelisted cursor.
// All decode failures wrap this sentinel so callers can translate it into a
// client-facing condition with errors.Is.
var ErrInvalidCursor = fmt.Errorf("pagination: invalid cursor")

// cursorJSON produces canonical JSON: map keys are emitted in sorted order so
// the same cursor always encodes to the same token, and numbers are decoded
// as json.Number so integer values survive the round trip unmangled.
var cursorJSON = sonic.Config{
	SortMapKeys: true,
	UseNumber:   true,
}.Froze()

// Cursor is a decoded pagination token. Value identifies the last seen row
// (usually its id); SortValue carries the last seen sort-column value when
// the ordering is not on the id itself.
//
// SortValue holds a JSON-native scalar after decoding: string, int64,
// float64, bool, or nil. Values that were richer types before encoding
// (timestamps, UUIDs) round-trip as their string form and must be re-parsed
// by the caller, which knows the sort field's type.
type Cursor struct {
	Value     string
	SortValue any
}

// Encode serializes the cursor as canonical JSON and base64url-encodes it
// without padding. Non-scalar sort values are stringified first: time.Time
// as RFC 3339 with sub-second precision, anything else via its string form.
func Encode(c Cursor) (string, error) {
	payload := map[string]any{"value": c.Value}
	if c.SortValue != nil {
		payload["sort_value"] = scalarize(c.SortValue)
	}

	raw, err := cursorJSON.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("pagination: encode cursor: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Decode parses and validates an encoded cursor. It fails with an error
// wrapping ErrInvalidCursor when the token is longer than MaxEncodedLength,
// is not valid base64url, decodes to more than MaxDecodedLength bytes, is
// not a JSON object, contains keys outside {value, sort_value}, is missing
// value, or carries a value/sort_value of the wrong type.
func Decode(encoded string) (Cursor, error) {
	var c Cursor

	if encoded == "" {
		return c, invalidf("empty cursor")
	}
	if len(encoded) > MaxEncodedLength {
		return c, invalidf("cursor exceeds %d characters", MaxEncodedLength)
	}

	// Tokens from other producers may arrive padded; standard base64url with
	// or without padding is accepted.
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		return c, invalidf("cursor is not valid base64url")
	}
	if len(raw) > MaxDecodedLength {
		return c, invalidf("decoded cursor exceeds %d bytes", MaxDecodedLength)
	}

	var payload map[string]any
	if err := cursorJSON.Unmarshal(raw, &payload); err != nil || payload == nil {
		return c, invalidf("cursor payload is not a JSON object")
	}

	for key := range payload {
		if key != "value" && key != "sort_value" {
			return c, invalidf("unexpected cursor key %q", key)
		}
	}

	rawValue, ok := payload["value"]
	if !ok {
		return c, invalidf("cursor is missing value")
	}
	switch v := rawValue.(type) {
	case string:
		c.Value = v
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return c, invalidf("cursor value must be a string or integer")
		}
		c.Value = strconv.FormatInt(n, 10)
	default:
		return c, invalidf("cursor value must be a string or integer")
	}

	if rawSort, ok := payload["sort_value"]; ok {
		sv, err := decodeSortValue(rawSort)
		if err != nil {
			return c, err
		}
		c.SortValue = sv
	}

	return c, nil
}

func decodeSortValue(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return v, nil
	case bool:
		return v, nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, invalidf("cursor sort_value is not a valid number")
		}
		return f, nil
	default:
		return nil, invalidf("cursor sort_value must be a scalar")
	}
}

// scalarize reduces a sort value to something JSON-native. JSON scalars pass
// through untouched so Decode(Encode(c)) preserves them exactly.
func scalarize(v any) any {
	switch sv := v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return sv
	case time.Time:
		return sv.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return sv.String()
	default:
		return fmt.Sprint(sv)
	}
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidCursor, fmt.Sprintf(format, args...))
}
