package streamutil

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// SSESource decodes the JSON payload of every `data:` line of a server-sent
// event body. Decoding stops at `data: [DONE]` or end of body; malformed
// payloads are skipped.
type SSESource[T any] struct {
	body   io.ReadCloser
	reader *bufio.Reader
	logger *slog.Logger

	current T
	err     error
	done    bool
	once    sync.Once
}

func NewSSESource[T any](body io.ReadCloser, logger *slog.Logger) *SSESource[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &SSESource[T]{body: body, reader: bufio.NewReader(body), logger: logger}
}

func (s *SSESource[T]) Next() bool {
	for !s.done {
		line, readErr := s.reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if data, ok := strings.CutPrefix(line, "data:"); ok {
			data = strings.TrimSpace(data)
			if data == "[DONE]" {
				s.done = true
				return false
			}
			if data != "" {
				var v T
				if err := json.Unmarshal([]byte(data), &v); err != nil {
					s.logger.Debug("skipping malformed stream event", slog.String("error", err.Error()))
				} else {
					s.current = v
					if readErr != nil {
						s.finish(readErr)
					}
					return true
				}
			}
		}
		if readErr != nil {
			s.finish(readErr)
		}
	}
	return false
}

func (s *SSESource[T]) finish(err error) {
	s.done = true
	if !errors.Is(err, io.EOF) {
		s.err = err
	}
}

func (s *SSESource[T]) Current() T {
	return s.current
}

func (s *SSESource[T]) Err() error {
	return s.err
}

func (s *SSESource[T]) Close() error {
	var err error
	s.once.Do(func() {
		err = s.body.Close()
	})
	return err
}
