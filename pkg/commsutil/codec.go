package commsutil

import "github.com/morezero/jsonrpc11/pkg/jsonrpc"

// EncodePayload serializes a value to JSON bytes.
func EncodePayload(v interface{}) ([]byte, error) {
	return jsonrpc.Marshal(v)
}

// DecodePayload deserializes JSON bytes into the given target. Numbers decoded
// into interface values stay json.Number.
func DecodePayload(data []byte, v interface{}) error {
	return jsonrpc.Decode(data, v)
}
