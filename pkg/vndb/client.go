package vndb

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

const (
	DefaultHost = "api.vndb.org"
	DefaultPort = 19535

	// eot is the protocol's end-of-message marker. It terminates every
	// request and every response and never appears inside a payload.
	eot = 0x04

	chunkSize    = 4096
	greetingSize = 128
)

// ThrottledError is the server-signaled rate limit. Wait is how long the
// server demands the client stay quiet before issuing another request.
type ThrottledError struct {
	Wait time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("throttled: wait %s", e.Wait)
}

// APIError is any non-throttle error envelope returned by the server.
type APIError struct {
	ID  string
	Msg string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %q: %s", e.ID, e.Msg)
}

// Dialer connects authenticated sessions to the VNDB TCP API.
type Dialer struct {
	Host    string
	Port    int
	Token   []byte
	Timeout time.Duration
}

// Connect opens a TLS connection, sends the credential token and consumes
// the greeting. On failure the caller must Connect again before sending
// any request.
func (d *Dialer) Connect(ctx context.Context) (*Session, error) {
	host := d.Host
	if host == "" {
		host = DefaultHost
	}
	port := d.Port
	if port == 0 {
		port = DefaultPort
	}

	td := &tls.Dialer{NetDialer: &net.Dialer{Timeout: d.Timeout}}
	conn, err := td.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", host, err)
	}

	s := NewSession(conn)
	s.timeout = d.Timeout
	if err := s.login(ctx, d.Token); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Session is one live connection. It carries at most one request at a
// time: a new request must not be sent before the prior response's
// terminator has been read, which the request/receive pairing below
// guarantees as long as the Session is not shared across goroutines.
type Session struct {
	conn    io.ReadWriteCloser
	timeout time.Duration
}

// NewSession wraps an already-established connection. Tests use this with
// an in-memory pipe; production code goes through Dialer.Connect.
func NewSession(conn io.ReadWriteCloser) *Session {
	return &Session{conn: conn}
}

func (s *Session) Close() error {
	return s.conn.Close()
}

func (s *Session) login(ctx context.Context, token []byte) error {
	s.applyDeadline(ctx)
	if _, err := s.conn.Write(token); err != nil {
		return fmt.Errorf("send credentials: %w", err)
	}
	greeting := make([]byte, greetingSize)
	if _, err := s.conn.Read(greeting); err != nil {
		return fmt.Errorf("read login response: %w", err)
	}
	return nil
}

// applyDeadline maps the context deadline onto the socket so blocking
// reads and writes observe it. Without one, the session's own timeout
// bounds the round trip instead.
func (s *Session) applyDeadline(ctx context.Context) {
	d, ok := s.conn.(interface{ SetDeadline(time.Time) error })
	if !ok {
		return
	}
	if deadline, has := ctx.Deadline(); has {
		d.SetDeadline(deadline)
	} else if s.timeout > 0 {
		d.SetDeadline(time.Now().Add(s.timeout))
	} else {
		d.SetDeadline(time.Time{})
	}
}

// roundTrip sends one command and reads the matching response envelope.
func (s *Session) roundTrip(ctx context.Context, cmd string) (string, []byte, error) {
	s.applyDeadline(ctx)

	if _, err := s.conn.Write(append([]byte(cmd), eot)); err != nil {
		return "", nil, fmt.Errorf("send request: %w", err)
	}

	frame, err := s.receive()
	if err != nil {
		return "", nil, err
	}

	status, payload, _ := bytes.Cut(frame, []byte(" "))
	return string(status), payload, nil
}

// receive accumulates fixed-size chunks until the end-of-message byte
// shows up at the tail of the buffer, then returns the frame without it.
func (s *Session) receive() ([]byte, error) {
	var buf []byte
	chunk := make([]byte, chunkSize)
	for {
		n, err := s.conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			if buf[len(buf)-1] == eot {
				return buf[:len(buf)-1], nil
			}
		}
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
	}
}

// decodeError turns an error envelope into a typed error.
func decodeError(payload []byte) error {
	var e struct {
		ID       string  `json:"id"`
		Msg      string  `json:"msg"`
		FullWait float64 `json:"fullwait"`
	}
	if err := json.Unmarshal(payload, &e); err != nil {
		return fmt.Errorf("decode error envelope: %w", err)
	}
	if e.ID == "throttled" {
		return &ThrottledError{Wait: time.Duration(e.FullWait * float64(time.Second))}
	}
	return &APIError{ID: e.ID, Msg: e.Msg}
}

func getResults[T any](ctx context.Context, s *Session, entity, fields string, f Filter) (*Results[T], error) {
	cmd := fmt.Sprintf("get %s %s %s", entity, fields, f)
	status, payload, err := s.roundTrip(ctx, cmd)
	if err != nil {
		return nil, err
	}
	switch status {
	case "error":
		return nil, decodeError(payload)
	case "results":
		var res Results[T]
		if err := json.Unmarshal(payload, &res); err != nil {
			return nil, fmt.Errorf("decode %s results: %w", entity, err)
		}
		return &res, nil
	default:
		return nil, fmt.Errorf("unexpected response status %q", status)
	}
}

// VN runs a get vn query with the given field groups and filter.
func (s *Session) VN(ctx context.Context, fields string, f Filter) (*Results[VN], error) {
	return getResults[VN](ctx, s, "vn", fields, f)
}

// Characters runs a get character query.
func (s *Session) Characters(ctx context.Context, fields string, f Filter) (*Results[Character], error) {
	return getResults[Character](ctx, s, "character", fields, f)
}

// StaffByID fetches one staff record with its credited aliases.
func (s *Session) StaffByID(ctx context.Context, id int) (*Results[Staff], error) {
	return getResults[Staff](ctx, s, "staff", "basic,aliases", Eq("id", id))
}

// Stats runs the dbstats command.
func (s *Session) Stats(ctx context.Context) (*Stats, error) {
	status, payload, err := s.roundTrip(ctx, "dbstats")
	if err != nil {
		return nil, err
	}
	switch status {
	case "error":
		return nil, decodeError(payload)
	case "dbstats":
		var st Stats
		if err := json.Unmarshal(payload, &st); err != nil {
			return nil, fmt.Errorf("decode dbstats: %w", err)
		}
		return &st, nil
	default:
		return nil, fmt.Errorf("unexpected response status %q", status)
	}
}
