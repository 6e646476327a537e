package serenity

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
)

const sseReadChunkSize = 4096

// sseConnection decodes a server-sent-event response body into discrete
// (event, data) records and dispatches them through a local listener table.
//
// Records are separated by a blank line; the connection detects whether the
// stream uses \n or \r\n line terminators and splits on the doubled form.
// Decoding is incremental: bytes are appended to a buffer as they arrive and
// every complete record is consumed off the front, leaving a partial tail
// for the next read.
type sseConnection struct {
	httpClient HTTPDoer
	listeners  map[string][]func(data string)
	active     atomic.Bool
	buffer     string
}

// newSSEConnection pre-wires the start/stop/error defaults: stop and error
// halt the decode loop, start is a no-op. Callers add their own listeners
// with on; defaults keep firing alongside them.
func newSSEConnection(httpClient HTTPDoer) *sseConnection {
	conn := &sseConnection{httpClient: httpClient}
	conn.listeners = map[string][]func(string){
		EventStart: {func(string) {}},
		EventStop:  {func(string) { conn.stop() }},
		EventError: {func(string) { conn.stop() }},
	}
	return conn
}

func (s *sseConnection) on(event string, fn func(data string)) {
	s.listeners[event] = append(s.listeners[event], fn)
}

// stop halts the decode loop. Bytes already read stay read; records already
// buffered in the current pass still dispatch.
func (s *sseConnection) stop() {
	s.active.Store(false)
}

// start issues the POST and decodes the response when it is an event
// stream. 2xx responses with a different content type are returned to the
// caller with the body unconsumed. Transport failures and non-2xx statuses
// are returned as errors.
func (s *sseConnection) start(ctx context.Context, url string, headers http.Header, payload []byte) (*http.Response, error) {
	s.active.Store(true)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		s.active.Store(false)
		return nil, err
	}
	for name, values := range headers {
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.active.Store(false)
		return nil, &TransportError{Op: http.MethodPost, URL: url, Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		s.active.Store(false)
		return nil, decodeAPIError(resp, "failed to open event stream")
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "text/event-stream") {
		// Not a stream; the caller owns the body.
		s.active.Store(false)
		return resp, nil
	}
	defer resp.Body.Close()

	chunk := make([]byte, sseReadChunkSize)
	for s.active.Load() {
		n, readErr := resp.Body.Read(chunk)
		if n > 0 {
			s.buffer += string(chunk[:n])
			s.dispatchBuffered()
		}
		if readErr != nil {
			if isEOF(readErr) {
				break
			}
			s.active.Store(false)
			return nil, readErr
		}
	}
	s.active.Store(false)
	return resp, nil
}

// dispatchBuffered consumes every complete record currently buffered.
func (s *sseConnection) dispatchBuffered() {
	terminator := "\n"
	if strings.Contains(s.buffer, "\r\n") {
		terminator = "\r\n"
	}
	delimiter := terminator + terminator

	for {
		end := strings.Index(s.buffer, delimiter)
		if end < 0 {
			return
		}
		record := strings.TrimSpace(s.buffer[:end])
		s.buffer = s.buffer[end+len(delimiter):]

		event, data := parseSSERecord(record, terminator)
		s.trigger(event, data)
	}
}

// parseSSERecord extracts the event name and data line from one record.
// Lines without an event:/data: prefix are ignored; a missing event name
// defaults to "message".
func parseSSERecord(record, terminator string) (event, data string) {
	event = "message"
	for _, line := range strings.Split(record, terminator) {
		switch {
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		}
	}
	return event, data
}

func (s *sseConnection) trigger(event, data string) {
	for _, fn := range s.listeners[event] {
		fn(data)
	}
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
