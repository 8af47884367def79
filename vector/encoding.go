package vector

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hubenschmidt/go-wordcrack/core"
)

// Vectors are 32-bit IEEE 754 floats. The binary form used by the SQLite and
// Badger backends is a little-endian sequence of float32 values with no
// length prefix, so the dimension is len(blob)/4. The JSON form is a plain
// array of numbers, and pgvector receives its "[a,b,c]" text literal.

// EncodeVector encodes vec into its binary form.
func EncodeVector(vec []float32) []byte {
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

// DecodeVector decodes a blob produced by EncodeVector.
func DecodeVector(b []byte) ([]float32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: blob length %d is not a positive multiple of 4", core.ErrMalformedVector, len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}

// EncodeJSON encodes vec as a JSON array.
func EncodeJSON(vec []float32) ([]byte, error) {
	return json.Marshal(vec)
}

// DecodeJSON decodes a JSON array of numbers.
func DecodeJSON(data []byte) ([]float32, error) {
	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedVector, err)
	}
	return vec, nil
}

// FormatPgVector converts a vector to pgvector text format: "[0.1,0.2,0.3]"
func FormatPgVector(vec []float32) string {
	parts := make([]string, len(vec))
	for i, v := range vec {
		parts[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// ParsePgVector converts pgvector text format back to a vector.
func ParsePgVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil, fmt.Errorf("%w: empty pgvector literal", core.ErrMalformedVector)
	}

	parts := strings.Split(s, ",")
	result := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("%w: component %d: %v", core.ErrMalformedVector, i, err)
		}
		result[i] = float32(f)
	}
	return result, nil
}

// Validate checks the storage invariants: the vector has dim components
// (skipped when dim is 0), every component is finite, and at least one is
// non-zero.
func Validate(vec []float32, dim int) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty vector", core.ErrMalformedVector)
	}
	if dim > 0 && len(vec) != dim {
		return fmt.Errorf("%w: dimension %d, want %d", core.ErrMalformedVector, len(vec), dim)
	}
	nonZero := false
	for i, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: component %d is %v", core.ErrMalformedVector, i, v)
		}
		if v != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		return fmt.Errorf("%w: all-zero vector", core.ErrMalformedVector)
	}
	return nil
}

// decodeStored decodes a blob and validates it against dim.
func decodeStored(b []byte, dim int) ([]float32, error) {
	vec, err := DecodeVector(b)
	if err != nil {
		return nil, err
	}
	if err := Validate(vec, dim); err != nil {
		return nil, err
	}
	return vec, nil
}
