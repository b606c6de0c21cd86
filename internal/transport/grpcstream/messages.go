package grpcstream

import (
	"bytes"
	"encoding/gob"
)

// These small envelope structs are gob-encoded into rawFrame payloads. They
// stand in for what would otherwise be generated protobuf messages.

type hasObjectRequest struct{ Hash string }
type hasObjectResponse struct{ Present bool }

type hasObjectsRequest struct{ Hashes []string }
type hasObjectsResponse struct{ Present []bool }

type hasTreeRequest struct{ Hash string }
type hasTreeResponse struct {
	MissingTrees   []string
	MissingObjects []string
	Unsupported    bool
}

type writeObjectHeader struct{ Hash string }
type writeObjectAck struct{ AlreadyExists bool }

type readObjectRequest struct{ Hash string }

func encodeFrame(v any) (rawFrame, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return rawFrame(buf.Bytes()), nil
}

func decodeFrame(f rawFrame, v any) error {
	return gob.NewDecoder(bytes.NewReader(f)).Decode(v)
}
