package grpcstream

import (
	"context"
	"fmt"
	"io"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/fstreehq/fstree/internal/remotecontract"
)

const serviceName = "fstree.grpcstream.BlobStore"

// retryServiceConfig matches spec.md §4.9's literal retry numbers: five
// attempts, exponential backoff starting at 100ms, capped at 30s, retried
// only on UNAVAILABLE.
const retryServiceConfig = `{
	"methodConfig": [{
		"name": [{"service": "` + serviceName + `"}],
		"retryPolicy": {
			"MaxAttempts": 5,
			"InitialBackoff": "0.1s",
			"MaxBackoff": "30s",
			"BackoffMultiplier": 2.0,
			"RetryableStatusCodes": ["UNAVAILABLE"]
		}
	}]
}`

// Remote is a tcp://, jolt:// gRPC-style streaming remote.
type Remote struct {
	conn *grpc.ClientConn
}

var _ remotecontract.TreeCapableRemote = (*Remote)(nil)

// New dials target ("host:port", the URL's host component with the scheme
// stripped by the caller).
func New(target string) (*Remote, error) {
	conn, err := grpc.NewClient(target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
		grpc.WithDefaultServiceConfig(retryServiceConfig),
	)
	if err != nil {
		return nil, fmt.Errorf("grpcstream: dial %s: %w", target, err)
	}
	return &Remote{conn: conn}, nil
}

func (r *Remote) Close() error { return r.conn.Close() }

func (r *Remote) invoke(ctx context.Context, method string, req any, resp any) error {
	reqFrame, err := encodeFrame(req)
	if err != nil {
		return err
	}
	var respFrame rawFrame
	if err := r.conn.Invoke(ctx, serviceName+"/"+method, reqFrame, &respFrame); err != nil {
		return err
	}
	return decodeFrame(respFrame, resp)
}

func (r *Remote) HasObject(ctx context.Context, hash string) (bool, error) {
	var resp hasObjectResponse
	if err := r.invoke(ctx, "HasObject", hasObjectRequest{Hash: hash}, &resp); err != nil {
		return false, err
	}
	return resp.Present, nil
}

func (r *Remote) HasObjects(ctx context.Context, hashes []string) ([]bool, error) {
	var resp hasObjectsResponse
	if err := r.invoke(ctx, "HasObjects", hasObjectsRequest{Hashes: hashes}, &resp); err != nil {
		return nil, err
	}
	return resp.Present, nil
}

func (r *Remote) HasTree(ctx context.Context, hash string) ([]string, []string, error) {
	var resp hasTreeResponse
	if err := r.invoke(ctx, "HasTree", hasTreeRequest{Hash: hash}, &resp); err != nil {
		return nil, nil, err
	}
	if resp.Unsupported {
		return nil, nil, remotecontract.ErrUnsupported
	}
	return resp.MissingTrees, resp.MissingObjects, nil
}

// WriteObject streams localPath up as a client-streaming RPC: a header
// frame naming the hash, followed by fixed-size chunks, closed to receive
// a single ack.
func (r *Remote) WriteObject(ctx context.Context, hash, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	desc := &grpc.StreamDesc{ClientStreams: true}
	stream, err := r.conn.NewStream(ctx, desc, serviceName+"/WriteObject")
	if err != nil {
		return err
	}

	header, err := encodeFrame(writeObjectHeader{Hash: hash})
	if err != nil {
		return err
	}
	if err := stream.SendMsg(header); err != nil {
		return err
	}

	buf := make([]byte, 64*1024)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			if sendErr := stream.SendMsg(rawFrame(append([]byte(nil), buf[:n]...))); sendErr != nil {
				return sendErr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}

	var ackFrame rawFrame
	if err := stream.RecvMsg(&ackFrame); err != nil {
		return err
	}
	var ack writeObjectAck
	return decodeFrame(ackFrame, &ack)
}

// ReadObject receives finalPath as a server-streaming RPC, writing chunks
// into a unique file under tmpDir before renaming into place.
func (r *Remote) ReadObject(ctx context.Context, hash, finalPath, tmpDir string) error {
	desc := &grpc.StreamDesc{ServerStreams: true}
	stream, err := r.conn.NewStream(ctx, desc, serviceName+"/ReadObject")
	if err != nil {
		return err
	}
	reqFrame, err := encodeFrame(readObjectRequest{Hash: hash})
	if err != nil {
		return err
	}
	if err := stream.SendMsg(reqFrame); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(tmpDir, "grpcstream-*")
	if err != nil {
		return err
	}
	for {
		var chunk rawFrame
		err := stream.RecvMsg(&chunk)
		if err == io.EOF {
			break
		}
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return err
		}
		if _, err := tmp.Write(chunk); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return err
		}
	}
	tmp.Close()
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
