package plugin

/*
	JSONKey

	This plugin allows for a JSON endpoint to be used as the sample source.

	Returns the number found at a dotted key path inside a JSON object,
	e.g. "sensor.emg" in {"sensor":{"emg":512}}.
	Numeric path elements index arrays: "channels.1" in {"channels":[3,4]}

	This expects the raw value passed to Transform to contain the entire JSON
*/

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

type JSONKeyPlugin struct {
	MetricKey string
}

// NewJSONTransformer returns a struct for what to search in the JSON
func NewJSONTransformer(mk string) *JSONKeyPlugin {
	return &JSONKeyPlugin{MetricKey: mk}
}

// Transform extracts the JSONKeyPlugin key from the JSON object
func (tj *JSONKeyPlugin) Transform(raw string, timestamp time.Time) (float64, error) {
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.UseNumber()

	var data interface{}
	if err := decoder.Decode(&data); err != nil {
		slog.Error("Error unmarshalling json",
			slog.String("search", tj.MetricKey),
			slog.String("json", raw),
			slog.Any("error", err))
		return 0, fmt.Errorf("error unmarshalling json from metric: %w", err)
	}

	value, err := ExtractValue(data, tj.MetricKey)
	if err != nil {
		return 0, fmt.Errorf("error extracting json value from metric: %w", err)
	}

	return value, nil
}

// ExtractValue walks a dotted key path through decoded JSON
func ExtractValue(data interface{}, metric string) (float64, error) {
	keys := strings.Split(metric, ".")
	current := data

	for _, key := range keys {
		switch v := current.(type) {
		case map[string]interface{}:
			var ok bool
			current, ok = v[key]
			if !ok {
				return 0, fmt.Errorf("key %s not found", key)
			}
		case []interface{}:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(v) {
				return 0, fmt.Errorf("bad array index %s for %d elements", key, len(v))
			}
			current = v[idx]
		default:
			return 0, fmt.Errorf("cannot traverse into type %T at key %s", v, key)
		}
	}

	switch v := current.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("error converting json.Number: %w", err)
		}
		return f, nil
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("value not numeric, cannot traverse %T", v)
	}
}

func (tj *JSONKeyPlugin) WholeBody() bool { return true }
func (tj *JSONKeyPlugin) Type() string    { return "json_key" }
