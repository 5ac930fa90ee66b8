package utils

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ConvertToInt handles the loose id shapes that arrive from decoded JSON:
// float64 from encoding/json, json.Number, numeric strings and plain ints.
func ConvertToInt(val interface{}) (int, error) {
	switch v := val.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("cannot convert non-integral %v to int", v)
		}
		return int(v), nil
	case json.Number:
		i, err := v.Int64()
		return int(i), err
	case string:
		return strconv.Atoi(strings.TrimSpace(v))
	case []byte:
		return strconv.Atoi(string(v))
	default:
		return 0, fmt.Errorf("cannot convert %T to int", val)
	}
}

// IsInteger reports whether val can be read as an integer id.
func IsInteger(val interface{}) bool {
	switch val.(type) {
	case int, int32, int64, float64, json.Number:
		_, err := ConvertToInt(val)
		return err == nil
	default:
		return false
	}
}
