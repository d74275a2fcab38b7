// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package canonical produces the deterministic JSON encoding used for every
// hash in the custody ledger.
//
// Rules:
//   - object keys are sorted by byte order, recursively;
//   - array order is preserved;
//   - no insignificant whitespace;
//   - strings use JSON escaping without HTML escaping;
//   - integral numbers render as exact base 10 digits of any length, so 21,
//     21.0 and 2.1e1 all render as 21;
//   - fractional numbers render in their shortest float64 form and must be
//     exactly that value, so 0.10000000000000000001 is rejected rather than
//     rounded;
//   - numbers outside the float64 range are rejected unless written as
//     plain integers.
//
// Two semantically equal values therefore always canonicalize to the same
// bytes, whatever key order or number spelling they arrived with.
package canonical

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrInvalidJSON is returned when the input is not a single JSON value.
	ErrInvalidJSON = errors.New("canonical: invalid json")

	// ErrUnsupportedNumber is returned for numbers that cannot be rendered
	// without losing digits.
	ErrUnsupportedNumber = errors.New("canonical: unsupported number")
)

// Canonicalize encodes v canonically. Go values are first marshalled with
// encoding/json so struct tags decide field names, then normalized.
// A json.RawMessage or []byte holding JSON is canonicalized directly.
func Canonicalize(v any) ([]byte, error) {
	var raw []byte
	switch val := v.(type) {
	case json.RawMessage:
		raw = val
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("canonical: marshal: %w", err)
		}
		raw = b
	}

	return CanonicalizeJSON(raw)
}

// CanonicalizeJSON canonicalizes one JSON document.
func CanonicalizeJSON(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	// trailing data after the first value is not a single document
	if _, err := dec.Token(); err == nil {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidJSON)
	}

	buf := new(bytes.Buffer)
	if err := write(buf, decoded); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func write(buf *bytes.Buffer, v any) error {
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
		return writeString(buf, val)
	case json.Number:
		s, err := formatNumber(val)
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := write(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := write(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("canonical: unexpected type %T", v)
	}

	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("canonical: encode string: %w", err)
	}
	// Encode appends a newline
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

func formatNumber(n json.Number) (string, error) {
	s := string(n)
	if !strings.ContainsAny(s, ".eE") {
		i, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedNumber, n)
		}
		return i.String(), nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedNumber, n)
	}
	if f == 0 {
		// underflow parses as zero too
		mantissa, _, _ := strings.Cut(strings.ToLower(s), "e")
		if strings.Trim(mantissa, "-+0.") != "" {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedNumber, n)
		}
		return "0", nil
	}

	lit, ok := new(big.Rat).SetString(s)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedNumber, n)
	}
	if lit.IsInt() {
		return lit.Num().String(), nil
	}

	shortest := strconv.FormatFloat(f, 'g', -1, 64)
	if rounded, _ := new(big.Rat).SetString(shortest); rounded == nil || rounded.Cmp(lit) != 0 {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedNumber, n)
	}
	return shortest, nil
}
