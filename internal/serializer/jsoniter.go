package serializer

import (
	jsoniter "github.com/json-iterator/go"
)

// JSON is the codec for every payload crossing the broker/worker wire and for
// persisted snapshots.
//
// UseNumber keeps SNMP counter values and port numbers intact instead of
// degrading them to float64 when a payload is decoded into map[string]any.
var JSON = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()
