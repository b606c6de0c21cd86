package grpcstream

import "testing"

func TestRawCodecMarshalUnmarshal(t *testing.T) {
	c := rawCodec{}
	in := rawFrame("hello")
	b, err := c.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out rawFrame
	if err := c.Unmarshal(b, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if string(out) != "hello" {
		t.Fatalf("got %q, want %q", out, "hello")
	}
}

func TestRawCodecRejectsUnknownType(t *testing.T) {
	c := rawCodec{}
	if _, err := c.Marshal("not a rawFrame"); err == nil {
		t.Fatalf("expected Marshal to reject a non-rawFrame value")
	}
	var s string
	if err := c.Unmarshal([]byte("x"), &s); err == nil {
		t.Fatalf("expected Unmarshal to reject a non-*rawFrame target")
	}
}

func TestEncodeDecodeFrameRoundTrip(t *testing.T) {
	req := hasObjectRequest{Hash: "sha1:deadbeef"}
	frame, err := encodeFrame(req)
	if err != nil {
		t.Fatalf("encodeFrame: %v", err)
	}
	var got hasObjectRequest
	if err := decodeFrame(frame, &got); err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	if got != req {
		t.Fatalf("got %+v, want %+v", got, req)
	}
}

func TestEncodeDecodeHasTreeResponse(t *testing.T) {
	resp := hasTreeResponse{
		MissingTrees:   []string{"a", "b"},
		MissingObjects: []string{"c"},
		Unsupported:    true,
	}
	frame, err := encodeFrame(resp)
	if err != nil {
		t.Fatalf("encodeFrame: %v", err)
	}
	var got hasTreeResponse
	if err := decodeFrame(frame, &got); err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	if got.Unsupported != resp.Unsupported || len(got.MissingTrees) != 2 || len(got.MissingObjects) != 1 {
		t.Fatalf("got %+v, want %+v", got, resp)
	}
}
