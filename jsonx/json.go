// Package jsonx is the codec used for stored chain objects. It keeps the
// standard library's encoding semantics while cutting reflection cost on the
// hot block and state persistence paths.
package jsonx

import (
	jsoniter "github.com/json-iterator/go"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

func Marshal(v interface{}) ([]byte, error) {
	return codec.Marshal(v)
}

func Unmarshal(data []byte, v interface{}) error {
	return codec.Unmarshal(data, v)
}
