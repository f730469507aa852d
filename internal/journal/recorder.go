// Package journal appends a receipt for every successful on-chain action.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Receipt is one journal line. It never carries secret material.
type Receipt struct {
	Time      time.Time         `json:"time"`
	Action    string            `json:"action"`
	Cluster   string            `json:"cluster"`
	Signer    string            `json:"signer,omitempty"`
	Signature string            `json:"signature,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// Recorder persists receipts.
type Recorder interface {
	Record(Receipt) error
}

// Nop discards receipts.
type Nop struct{}

func (Nop) Record(Receipt) error { return nil }

// JSONLRecorder appends receipts as JSON lines, one per confirmed action.
type JSONLRecorder struct {
	mu   sync.Mutex
	path string
	out  *os.File
	enc  *json.Encoder
}

// NewJSONLRecorder opens path for appending, creating parent directories. The file is
// readable by the owner only.
func NewJSONLRecorder(path string) (*JSONLRecorder, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("journal dir: %w", err)
		}
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &JSONLRecorder{path: path, out: out, enc: json.NewEncoder(out)}, nil
}

// Record stamps the receipt with the current time when unset and appends it.
func (r *JSONLRecorder) Record(receipt Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.out == nil {
		return os.ErrClosed
	}
	if receipt.Time.IsZero() {
		receipt.Time = time.Now().UTC()
	}
	if err := r.enc.Encode(receipt); err != nil {
		return fmt.Errorf("append to %s: %w", r.path, err)
	}
	return nil
}

// Close syncs and releases the file. Calling it twice is harmless.
func (r *JSONLRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.out == nil {
		return nil
	}
	syncErr := r.out.Sync()
	closeErr := r.out.Close()
	r.out = nil
	if syncErr != nil {
		return syncErr
	}
	return closeErr
}
