// Package grpcstream implements the tcp:// and jolt:// gRPC-style streaming
// remote named by spec.md §4.9/§1 and declared (interface-only) in
// original_source/src/remote_grpc.hpp / remote_jolt.hpp. No .proto/protoc
// toolchain is available in this environment, so instead of generated
// message types this package registers a raw-bytes codec with
// google.golang.org/grpc and calls its methods by hand over a ClientConn
// (Invoke and hand-built StreamDescs; it is client-only and defines no
// ServiceDesc), carrying frames that this package encodes and decodes
// itself.
package grpcstream

import "google.golang.org/grpc/encoding"

const codecName = "fstree-raw"

// rawFrame is the only "message" type exchanged: an opaque byte slice this
// package's handlers interpret according to which RPC produced them.
type rawFrame []byte

// rawCodec implements encoding.Codec by passing bytes through unchanged,
// the minimal viable substitute for a generated protobuf codec.
type rawCodec struct{}

func (rawCodec) Marshal(v any) ([]byte, error) {
	switch t := v.(type) {
	case rawFrame:
		return t, nil
	case *rawFrame:
		return *t, nil
	default:
		return nil, errUnsupportedType
	}
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	switch t := v.(type) {
	case *rawFrame:
		*t = append([]byte(nil), data...)
		return nil
	default:
		return errUnsupportedType
	}
}

func (rawCodec) Name() string { return codecName }

var errUnsupportedType = &codecError{"grpcstream: value is not a rawFrame"}

type codecError struct{ msg string }

func (e *codecError) Error() string { return e.msg }

func init() {
	encoding.RegisterCodec(rawCodec{})
}
