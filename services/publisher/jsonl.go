package publisher

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"sjsage522/silkdeal/internal/pager"
)

// JSONLinesPublisher writes each record as one UTF-8 JSON line.
type JSONLinesPublisher struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// NewJSONLinesPublisher writes to path, appending; "-" or "" means stdout.
func NewJSONLinesPublisher(path string) (*JSONLinesPublisher, error) {
	if path == "" || path == "-" {
		return &JSONLinesPublisher{w: os.Stdout}, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLinesPublisher{w: f, closer: f}, nil
}

// NewJSONLinesWriter writes to w; Close leaves w open.
func NewJSONLinesWriter(w io.Writer) *JSONLinesPublisher {
	return &JSONLinesPublisher{w: w}
}

func (p *JSONLinesPublisher) Publish(ctx context.Context, profile string, rec pager.Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	p.mu.Lock()
	defer p.mu.Unlock()
	_, err = p.w.Write(line)
	return err
}

func (p *JSONLinesPublisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}
