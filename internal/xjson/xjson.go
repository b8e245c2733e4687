// Package xjson — единая точка сериализации JSON.
//
// Все пакеты модуля используют goccy/go-json через эти обёртки,
// поэтому реализацию можно сменить, не трогая вызывающий код.
package xjson

import (
	stdjson "encoding/json"
	"io"

	gjson "github.com/goccy/go-json"
)

// RawMessage совместим с encoding/json.RawMessage.
type RawMessage = stdjson.RawMessage

func Marshal(v any) ([]byte, error) {
	return gjson.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return gjson.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	return gjson.Unmarshal(data, v)
}

// Decode читает один JSON документ из r.
func Decode(r io.Reader, v any) error {
	return gjson.NewDecoder(r).Decode(v)
}

// Encode пишет v в w.
func Encode(w io.Writer, v any) error {
	return gjson.NewEncoder(w).Encode(v)
}

// Valid проверяет, что data — корректный JSON.
func Valid(data []byte) bool {
	return gjson.Valid(data)
}
