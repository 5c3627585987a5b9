// Package serialmux provides an abstraction over a serial port with the
// ability for multiple clients to subscribe to the raw byte chunks the port
// delivers. The pulse protocol is binary, so chunks are fanned out exactly
// as read rather than split into lines; the frame decoder downstream owns
// reassembly.
package serialmux

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
)

// readBufferSize is the per-read scratch size. Chunk boundaries carry no
// meaning to subscribers, so the value only bounds per-read latency.
const readBufferSize = 4096

// SerialMuxInterface defines the operations the wiring and API layers use.
type SerialMuxInterface interface {
	// Subscribe creates a channel receiving byte chunks from the port. The
	// returned ID identifies the subscription for Unsubscribe.
	Subscribe() (string, chan []byte)
	// Unsubscribe removes a subscriber and closes its channel.
	Unsubscribe(string)
	// Monitor reads chunks from the port and fans them out to subscribers
	// until the context is cancelled or the port errors.
	Monitor(context.Context) error
	// Close closes all subscriber channels and the underlying port.
	Close() error
}

// SerialMux is a generic serial port multiplexer over any SerialPorter.
type SerialMux[T SerialPorter] struct {
	port         T
	subscribers  map[string]chan []byte
	subscriberMu sync.Mutex
	closing      bool
	closingMu    sync.Mutex
}

// NewSerialMux creates a SerialMux backed by the given port.
func NewSerialMux[T SerialPorter](port T) *SerialMux[T] {
	return &SerialMux[T]{
		port:        port,
		subscribers: make(map[string]chan []byte),
	}
}

func (s *SerialMux[T]) Subscribe() (string, chan []byte) {
	id := uuid.NewString()
	ch := make(chan []byte, 1)
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	s.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber from the mux.
func (s *SerialMux[T]) Unsubscribe(id string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if ch, ok := s.subscribers[id]; ok {
		close(ch)
		delete(s.subscribers, id)
	}
}

// Monitor reads from the serial port and fans chunks out to subscribers.
// Reads happen on a helper goroutine so a blocking port read cannot keep the
// loop from observing context cancellation.
func (s *SerialMux[T]) Monitor(ctx context.Context) error {
	chunkChan := make(chan []byte)
	readErrChan := make(chan error, 1)

	go func() {
		defer close(chunkChan)
		buf := make([]byte, readBufferSize)
		for {
			n, err := s.port.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case chunkChan <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if err != io.EOF {
					select {
					case readErrChan <- err:
					case <-ctx.Done():
					}
				}
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-readErrChan:
			return err

		case chunk, ok := <-chunkChan:
			if !ok {
				// reader goroutine finished (EOF or cancelled)
				return nil
			}
			s.closingMu.Lock()
			if s.closing {
				s.closingMu.Unlock()
				return nil
			}
			s.closingMu.Unlock()

			s.subscriberMu.Lock()
			for _, ch := range s.subscribers {
				select {
				case ch <- chunk:
				default:
					// skip a full subscriber rather than stall the fan-out
				}
			}
			s.subscriberMu.Unlock()
		}
	}
}

func (s *SerialMux[T]) Close() error {
	s.closingMu.Lock()
	s.closing = true
	s.closingMu.Unlock()

	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
	return s.port.Close()
}
