package ficha

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalPayload produces the canonical JSON encoding of a payload.
//
// Differences from json.Marshal:
//  1. Object keys sorted by UTF-16 code units
//  2. No HTML escaping (< > & are written as is)
//  3. Strings and keys are NFC normalized
//  4. json.Number values are written verbatim
//
// Encoding is idempotent: MarshalPayload(UnmarshalPayload(b)) == b for any b
// that MarshalPayload produced.
func MarshalPayload(p Payload) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, map[string]any(p)); err != nil {
		return nil, &SerializationError{Op: "encode payload", Err: err}
	}
	return buf.Bytes(), nil
}

// UnmarshalPayload decodes one JSON object into a Payload.
// Numbers are kept as json.Number. Anything other than a single object,
// including trailing data, is a SerializationError.
func UnmarshalPayload(data []byte) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, &SerializationError{Op: "decode payload", Err: err}
	}
	if obj == nil {
		return nil, &SerializationError{Op: "decode payload", Err: fmt.Errorf("payload is not a JSON object")}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &SerializationError{Op: "decode payload", Err: fmt.Errorf("trailing data after JSON object")}
	}
	return Payload(obj), nil
}

func encodeValue(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		return encodeString(buf, val)
	case json.Number:
		if !json.Valid([]byte(val)) {
			return fmt.Errorf("invalid number literal %q", string(val))
		}
		buf.WriteString(string(val))
	case float64:
		return encodeFloat(buf, val, 64)
	case float32:
		return encodeFloat(buf, float64(val), 32)
	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int32:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case uint:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint32:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(val, 10))
	case Payload:
		return encodeObject(buf, map[string]any(val))
	case map[string]any:
		return encodeObject(buf, val)
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeValue(buf, elem); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case []string:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, elem); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	default:
		return fmt.Errorf("unsupported payload type %T", v)
	}
	return nil
}

func encodeFloat(buf *bytes.Buffer, f float64, bits int) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("non-finite number %v", f)
	}
	// Shortest representation that parses back to the same value; matches
	// what a JSON decoder hands back as json.Number on the next read.
	var (
		b   []byte
		err error
	)
	if bits == 32 {
		b, err = json.Marshal(float32(f))
	} else {
		b, err = json.Marshal(f)
	}
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

func encodeObject(buf *bytes.Buffer, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	normalized := make(map[string]string, len(obj))
	for k := range obj {
		nk := norm.NFC.String(k)
		if prev, dup := normalized[nk]; dup {
			return fmt.Errorf("keys %q and %q are equal after NFC normalization", prev, k)
		}
		normalized[nk] = k
		keys = append(keys, nk)
	}
	sortUTF16(keys)

	buf.WriteByte('{')
	for i, nk := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeString(buf, nk); err != nil {
			return fmt.Errorf("key %q: %w", nk, err)
		}
		buf.WriteByte(':')
		if err := encodeValue(buf, obj[normalized[nk]]); err != nil {
			return fmt.Errorf("%q: %w", nk, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// encodeString writes s NFC normalized with HTML escaping disabled.
func encodeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	// Encoder appends a newline.
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

// sortUTF16 orders keys by UTF-16 code units, the ordering JavaScript
// clients use for object keys.
func sortUTF16(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		a := utf16.Encode([]rune(keys[i]))
		b := utf16.Encode([]rune(keys[j]))
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
}

// MarshalYAML renders numbers as YAML numbers instead of quoted strings.
func (p Payload) MarshalYAML() (any, error) {
	return yamlValue(map[string]any(p)), nil
}

func yamlValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return string(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = yamlValue(elem)
		}
		return out
	case Payload:
		return yamlValue(map[string]any(val))
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = yamlValue(elem)
		}
		return out
	default:
		return v
	}
}
