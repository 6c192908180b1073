package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
)

// ParseObject builds a FeatureVector from named values. All seven features
// must be present, no other key is allowed and every value must be a finite
// number. Values are not range checked.
func ParseObject(values map[string]any) (FeatureVector, error) {
	var (
		fv         FeatureVector
		missing    []string
		nonNumeric []string
		extra      []string
	)

	for i, name := range featureNames {
		raw, ok := values[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		f, ok := toFloat(raw)
		if !ok {
			nonNumeric = append(nonNumeric, name)
			continue
		}
		fv[i] = f
	}
	for key := range values {
		if _, ok := FeatureByName(key); !ok {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)

	var problems []string
	if len(missing) > 0 {
		problems = append(problems, "missing "+strings.Join(missing, ", "))
	}
	if len(extra) > 0 {
		problems = append(problems, "unexpected "+strings.Join(extra, ", "))
	}
	if len(nonNumeric) > 0 {
		problems = append(problems, "non-numeric "+strings.Join(nonNumeric, ", "))
	}
	if len(problems) > 0 {
		return FeatureVector{}, fmt.Errorf("%w: %s", ErrInvalidFeatureVector, strings.Join(problems, "; "))
	}
	return fv, nil
}

// ParseOrdered builds a FeatureVector from exactly seven values in schema
// order.
func ParseOrdered(values []float64) (FeatureVector, error) {
	if len(values) != NumFeatures {
		return FeatureVector{}, fmt.Errorf("%w: expected %d values, got %d", ErrInvalidFeatureVector, NumFeatures, len(values))
	}
	var fv FeatureVector
	copy(fv[:], values)
	if err := Validate(fv); err != nil {
		return FeatureVector{}, err
	}
	return fv, nil
}

// DecodeJSON parses either the named form {"attendance": 80, ...} or the
// ordered form [80, 30, ...].
func DecodeJSON(data []byte) (FeatureVector, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return FeatureVector{}, fmt.Errorf("%w: empty input", ErrInvalidFeatureVector)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	switch trimmed[0] {
	case '{':
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return FeatureVector{}, fmt.Errorf("%w: %v", ErrInvalidFeatureVector, err)
		}
		if err := expectEOF(dec); err != nil {
			return FeatureVector{}, err
		}
		return ParseObject(obj)
	case '[':
		var arr []any
		if err := dec.Decode(&arr); err != nil {
			return FeatureVector{}, fmt.Errorf("%w: %v", ErrInvalidFeatureVector, err)
		}
		if err := expectEOF(dec); err != nil {
			return FeatureVector{}, err
		}
		values := make([]float64, len(arr))
		for i, raw := range arr {
			f, ok := toFloat(raw)
			if !ok {
				return FeatureVector{}, fmt.Errorf("%w: position %d is not numeric", ErrInvalidFeatureVector, i)
			}
			values[i] = f
		}
		return ParseOrdered(values)
	default:
		return FeatureVector{}, fmt.Errorf("%w: expected a JSON object or array", ErrInvalidFeatureVector)
	}
}

// expectEOF rejects anything after the first JSON value.
func expectEOF(dec *json.Decoder) error {
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: unexpected data after the feature vector", ErrInvalidFeatureVector)
	}
	return nil
}

// Validate rejects vectors holding NaN or infinite values.
func Validate(fv FeatureVector) error {
	for i, v := range fv {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not a finite number", ErrInvalidFeatureVector, featureNames[i])
		}
	}
	return nil
}

// ClampToUI limits every value to the presentation panel's range. The
// inference path never calls this; it exists for presentation callers.
func ClampToUI(fv FeatureVector) FeatureVector {
	out := fv
	for i, r := range UIRanges {
		out[i] = math.Max(float64(r.Min), math.Min(float64(r.Max), out[i]))
	}
	return out
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
