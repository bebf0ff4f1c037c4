package log

import (
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// DefaultMaxFrameData caps the bytes of a control line stored per frame.
const DefaultMaxFrameData = 4096

// FileLogger appends CBOR-encoded events to a .plog file.
type FileLogger struct {
	mu      sync.Mutex
	file    *os.File
	encoder *cbor.Encoder
	maxData int
	written int
	closed  bool
}

// NewFileLogger opens path for appending, creating it with mode 0644.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{
		file:    f,
		encoder: NewEncoder(f),
		maxData: DefaultMaxFrameData,
	}, nil
}

// SetMaxFrameData changes the frame data cap. n <= 0 disables truncation.
func (l *FileLogger) SetMaxFrameData(n int) {
	l.mu.Lock()
	l.maxData = n
	l.mu.Unlock()
}

// Log writes the event. Encoding errors are dropped.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if f := event.Frame; f != nil && l.maxData > 0 && len(f.Data) > l.maxData {
		cut := *f
		cut.Data = f.Data[:l.maxData]
		cut.Truncated = true
		event.Frame = &cut
	}
	if err := l.encoder.Encode(event); err == nil {
		l.written++
	}
}

// Written returns how many events were encoded successfully.
func (l *FileLogger) Written() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written
}

// Close closes the file. Later calls to Log and Close are no-ops.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

var _ Logger = (*FileLogger)(nil)
