package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidQuantity = errors.New("quantity must be an integer")

// Quantity is a stock count. Clients send it either as a JSON number or as a
// numeric string (form inputs), so both decode to the same integer.
type Quantity int64

func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := quantityFromString(s)
		if err != nil {
			return err
		}
		*q = n
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidQuantity, data)
	}
	n, err := quantityFromFloat(f)
	if err != nil {
		return err
	}
	*q = n
	return nil
}

// ParseQuantity converts a decoded JSON value (number or numeric string) to a
// Quantity.
func ParseQuantity(v any) (Quantity, error) {
	switch x := v.(type) {
	case float64:
		return quantityFromFloat(x)
	case string:
		return quantityFromString(x)
	case int:
		return Quantity(x), nil
	case int32:
		return Quantity(x), nil
	case int64:
		return Quantity(x), nil
	case json.Number:
		return quantityFromString(x.String())
	}
	return 0, fmt.Errorf("%w: %v", ErrInvalidQuantity, v)
}

func quantityFromString(s string) (Quantity, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuantity, s)
	}
	return Quantity(n), nil
}

func quantityFromFloat(f float64) (Quantity, error) {
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt64/2 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidQuantity, f)
	}
	return Quantity(f), nil
}

// Keywords accepts either a JSON array of strings or one comma separated
// string.
type Keywords []string

func (k *Keywords) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*k = splitKeywords(s)
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*k = list
	return nil
}

var ErrInvalidKeywords = errors.New("keywords must be a string or a list of strings")

// ParseKeywords converts a decoded JSON value to Keywords.
func ParseKeywords(v any) (Keywords, error) {
	switch x := v.(type) {
	case string:
		return splitKeywords(x), nil
	case []string:
		return x, nil
	case []any:
		out := make(Keywords, 0, len(x))
		for _, item := range x {
			s, ok := item.(string)
			if !ok {
				return nil, ErrInvalidKeywords
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, ErrInvalidKeywords
}

func splitKeywords(s string) Keywords {
	out := Keywords{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
