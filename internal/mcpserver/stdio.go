package mcpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"

	"kotadb/internal/logging"
)

const maxLineBytes = 10 << 20 // 10 MiB, per §4.8.1's bounded per-message size

// StdioServer reads newline-delimited requests from r and writes
// newline-delimited responses to w, one at a time — the teacher's
// StdioTransport reversed: here the process answers rather than calls.
type StdioServer struct {
	dispatcher *Dispatcher
	writeMu    sync.Mutex
}

// NewStdioServer builds a StdioServer around a shared Dispatcher.
func NewStdioServer(d *Dispatcher) *StdioServer {
	return &StdioServer{dispatcher: d}
}

// Serve scans r line by line until EOF or ctx is cancelled, dispatching
// each request synchronously (§4.8 Concurrency: one tool call at a time,
// no pending-request map needed since this side never initiates calls).
func (s *StdioServer) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req rpcRequest
		if err := json.Unmarshal(line, &req); err != nil {
			logging.ToolsWarn("failed to parse request line: %v", err)
			continue
		}

		resp := s.dispatcher.Handle(ctx, req)
		if err := s.writeResponse(w, resp); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// writeResponse marshals and writes resp, newline-terminated, guarded by a
// mutex so a slow tool's internal errgroup fan-out can never interleave a
// partial write with another response.
func (s *StdioServer) writeResponse(w io.Writer, resp rpcResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err = w.Write(data)
	return err
}
