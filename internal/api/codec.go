// Package api defines the TravelBuddy RPC messages and the Connect handler
// and client constructors for each service.
//
// Messages are plain Go structs encoded as JSON, so every handler and client
// built here registers JSONCodec in place of Connect's protobuf codecs.
package api

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// JSONCodec marshals messages with encoding/json under the "json" codec name.
type JSONCodec struct{}

var _ connect.Codec = JSONCodec{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("invalid json message: %w", err)
	}
	return nil
}
