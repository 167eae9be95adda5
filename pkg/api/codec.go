// Package api defines the rewardsadmin.v1 Connect services: message types,
// procedure names, handler constructors and typed clients.
//
// Messages are plain Go structs carried as JSON. Every handler and client
// built by this package installs the JSON codec, so both the Connect
// protocol and plain `curl -H 'Content-Type: application/json'` calls work.
package api

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// CodecName is registered under the standard "json" name so that
// application/json requests select it.
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Name() string { return CodecName }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// WithJSON returns the option that installs the JSON codec.
func WithJSON() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
