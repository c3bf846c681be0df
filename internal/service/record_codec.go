package service

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/noah-isme/senja-literasi-api/internal/models"
)

// stringToSliceHook accepts array columns that the sheet stored as JSON text.
// Unparseable text becomes an empty array.
func stringToSliceHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Slice {
		return data, nil
	}
	raw := strings.TrimSpace(reflect.ValueOf(data).String())
	if raw == "" {
		return []interface{}{}, nil
	}
	var items []interface{}
	if err := json.Unmarshal([]byte(raw), &items); err != nil || items == nil {
		return []interface{}{}, nil
	}
	return items, nil
}

// decodeRecord converts a loosely typed row into T. Numbers become strings,
// "TRUE"/"false" become booleans and JSON-text arrays are expanded. Fields that
// cannot be converted are left at their zero value and reported in the error.
func decodeRecord[T any](record models.Record) (T, error) {
	var out T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		DecodeHook:       stringToSliceHook,
	})
	if err != nil {
		return out, err
	}
	if err := decoder.Decode(map[string]interface{}(record)); err != nil {
		return out, fmt.Errorf("decode record: %w", err)
	}
	return out, nil
}

// encodeRecord flattens a typed value back into a row.
func encodeRecord(value interface{}) (models.Record, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var record models.Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return record, nil
}

// mergeRecord overlays the typed fields onto the original row so columns this
// service does not model survive a rewrite.
func mergeRecord(original models.Record, value interface{}) (models.Record, error) {
	encoded, err := encodeRecord(value)
	if err != nil {
		return nil, err
	}
	merged := make(models.Record, len(original)+len(encoded))
	for k, v := range original {
		merged[k] = v
	}
	for k, v := range encoded {
		merged[k] = v
	}
	return merged, nil
}

// asString renders an identifier-like cell the way the sheet would show it.
func asString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

// DecodeRequest applies the sheet-row coercion rules to a JSON request body, so
// clients may send identifiers and class grades as numbers.
func DecodeRequest[T any](body models.Record) (T, error) {
	return decodeRecord[T](body)
}
