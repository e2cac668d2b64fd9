package generate

import "io"

// Sink receives the streamed response body. Commit marks the point
// after which the transport can no longer change its status code;
// errors before it can surface as structured responses, errors after
// it must travel in-band.
type Sink interface {
	io.Writer
	Commit()
	Committed() bool
}

// streamSink wraps a writer with commit tracking and error latching.
// Once a write fails every later write becomes a no-op; generation
// keeps running so the sandbox still reaches a usable state even when
// the caller hung up mid-stream.
type streamSink struct {
	w         io.Writer
	flush     func()
	committed bool
	err       error
}

// NewSink wraps w in a Sink. flush, if non-nil, runs after every
// successful write so chunks reach the client immediately.
func NewSink(w io.Writer, flush func()) Sink {
	return &streamSink{w: w, flush: flush}
}

func (s *streamSink) Write(p []byte) (int, error) {
	if s.err != nil {
		return len(p), nil
	}
	n, err := s.w.Write(p)
	if err != nil {
		s.err = err
		return len(p), nil
	}
	if s.flush != nil {
		s.flush()
	}
	return n, nil
}

func (s *streamSink) Commit()         { s.committed = true }
func (s *streamSink) Committed() bool { return s.committed }

// WriteErr reports the first write failure, if any.
func (s *streamSink) WriteErr() error { return s.err }

func writeErr(sink Sink) error {
	if ss, ok := sink.(*streamSink); ok {
		return ss.err
	}
	return nil
}
