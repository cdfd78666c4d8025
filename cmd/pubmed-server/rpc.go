package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/marco/pubmedVault/internal/analytics"
	"github.com/marco/pubmedVault/internal/pubmed"
)

// maxLineBytes bounds a single request line. Large PMID batches fit easily.
const maxLineBytes = 1 << 20

// request is one newline-delimited JSON command read from stdin.
type request struct {
	ID        any             `json:"id"`
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments"`
}

// response mirrors a request. Exactly one of Result and Error is set.
type response struct {
	ID     any    `json:"id"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Server reads requests line by line from stdin and writes one JSON
// response per line to stdout.
type Server struct {
	client   *pubmed.Client
	analyzer *analytics.Analyzer
	logger   *slog.Logger

	writeMu sync.Mutex
}

func newServer(client *pubmed.Client, analyzer *analytics.Analyzer, logger *slog.Logger) *Server {
	return &Server{
		client:   client,
		analyzer: analyzer,
		logger:   logger,
	}
}

// Run processes requests until the input closes or the context is
// cancelled. Request handling errors go back to the caller as error
// responses; only I/O failures stop the loop.
//
// Lines are read on a separate goroutine so cancellation is observed even
// while idle waiting for input. A read blocked inside the Reader itself
// cannot be interrupted; that goroutine exits once the input closes.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	out := bufio.NewWriter(w)

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		var line []byte
		select {
		case <-ctx.Done():
			s.logger.Info("request loop stopping", "reason", ctx.Err())
			return nil
		case l, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("reading requests: %w", err)
					}
				default:
				}
				return nil
			}
			line = l
		}

		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn("malformed request line", "error", err)
			s.write(out, response{Error: fmt.Sprintf("invalid request: %v", err)})
			continue
		}

		s.write(out, s.handle(ctx, req))
	}
}

func (s *Server) write(out *bufio.Writer, resp response) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	data, err := json.Marshal(resp)
	if err != nil {
		// The response payload is built from our own types; if it cannot
		// be marshalled, fall back to a bare error envelope.
		s.logger.Error("failed to marshal response", "error", err)
		data, _ = json.Marshal(response{ID: resp.ID, Error: "internal marshalling error"})
	}
	out.Write(data)
	out.WriteByte('\n')
	if err := out.Flush(); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}
