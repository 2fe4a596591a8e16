package logging

import (
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type dialFunc func(network, addr string, timeout time.Duration) (net.Conn, error)

// LogstashWriter is a zapcore.WriteSyncer that ships encoded entries to a
// Logstash TCP input. Write only enqueues; a single goroutine owns the
// connection. Entries are dropped and counted when the queue is full or
// Logstash is unreachable.
type LogstashWriter struct {
	addr          string
	dialTimeout   time.Duration
	writeTimeout  time.Duration
	retryInterval time.Duration
	queueSize     int
	dial          dialFunc

	queue   chan []byte
	done    chan struct{}
	dropped atomic.Uint64

	mu     sync.RWMutex
	closed bool

	// owned by the shipping goroutine
	conn      net.Conn
	nextRetry time.Time
}

type Option func(*LogstashWriter)

// WithDialTimeout defaults to 2 seconds.
func WithDialTimeout(d time.Duration) Option {
	return func(w *LogstashWriter) { w.dialTimeout = d }
}

// WithWriteTimeout defaults to 1 second.
func WithWriteTimeout(d time.Duration) Option {
	return func(w *LogstashWriter) { w.writeTimeout = d }
}

// WithRetryInterval sets how long entries are dropped after a failed connect
// or write before dialing again. Defaults to 5 seconds.
func WithRetryInterval(d time.Duration) Option {
	return func(w *LogstashWriter) { w.retryInterval = d }
}

// WithQueueSize bounds the number of entries waiting to be shipped.
// Defaults to 1024.
func WithQueueSize(n int) Option {
	return func(w *LogstashWriter) { w.queueSize = n }
}

func withDialer(dial dialFunc) Option {
	return func(w *LogstashWriter) { w.dial = dial }
}

func NewLogstashWriter(addr string, opts ...Option) (*LogstashWriter, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("logstash: empty address")
	}

	w := &LogstashWriter{
		addr:          addr,
		dialTimeout:   2 * time.Second,
		writeTimeout:  time.Second,
		retryInterval: 5 * time.Second,
		queueSize:     1024,
		dial:          net.DialTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.queueSize <= 0 {
		w.queueSize = 1
	}
	w.queue = make(chan []byte, w.queueSize)
	w.done = make(chan struct{})
	go w.ship()
	return w, nil
}

// Write copies p onto the queue and never blocks on the network.
func (w *LogstashWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	entry := make([]byte, len(p), len(p)+1)
	copy(entry, p)
	if entry[len(entry)-1] != '\n' {
		entry = append(entry, '\n')
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return 0, io.ErrClosedPipe
	}
	select {
	case w.queue <- entry:
	default:
		w.dropped.Add(1)
	}
	return len(p), nil
}

// Sync is a no-op; queued entries are flushed by Close.
func (w *LogstashWriter) Sync() error {
	return nil
}

// Dropped is the number of entries lost since the writer was created.
func (w *LogstashWriter) Dropped() uint64 {
	return w.dropped.Load()
}

// Close stops accepting entries, ships what is queued and closes the
// connection.
func (w *LogstashWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	<-w.done
	return nil
}

func (w *LogstashWriter) ship() {
	defer close(w.done)
	defer w.disconnect()

	for entry := range w.queue {
		if !w.connect() {
			w.dropped.Add(1)
			continue
		}
		if w.writeTimeout > 0 {
			_ = w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
		}
		if _, err := w.conn.Write(entry); err != nil {
			w.dropped.Add(1)
			w.disconnect()
			w.backoff()
		}
	}
}

func (w *LogstashWriter) connect() bool {
	if w.conn != nil {
		return true
	}
	if !w.nextRetry.IsZero() && time.Now().Before(w.nextRetry) {
		return false
	}
	conn, err := w.dial("tcp", w.addr, w.dialTimeout)
	if err != nil {
		w.backoff()
		return false
	}
	w.conn = conn
	w.nextRetry = time.Time{}
	return true
}

func (w *LogstashWriter) disconnect() {
	if w.conn == nil {
		return
	}
	_ = w.conn.Close()
	w.conn = nil
}

func (w *LogstashWriter) backoff() {
	if w.retryInterval <= 0 {
		w.nextRetry = time.Time{}
		return
	}
	w.nextRetry = time.Now().Add(w.retryInterval)
}
