package streamutil

import (
	"context"
	"sync"
)

// ChannelSource adapts SDK event channels (AWS event streams) to Source.
type ChannelSource[T any] struct {
	ctx     context.Context
	events  <-chan T
	errFn   func() error
	closeFn func() error

	current T
	err     error
	once    sync.Once
}

func NewChannelSource[T any](ctx context.Context, events <-chan T, errFn func() error, closeFn func() error) *ChannelSource[T] {
	return &ChannelSource[T]{ctx: ctx, events: events, errFn: errFn, closeFn: closeFn}
}

func (s *ChannelSource[T]) Next() bool {
	if s.err != nil {
		return false
	}
	select {
	case <-s.ctx.Done():
		s.err = s.ctx.Err()
		return false
	case ev, ok := <-s.events:
		if !ok {
			return false
		}
		s.current = ev
		return true
	}
}

func (s *ChannelSource[T]) Current() T {
	return s.current
}

func (s *ChannelSource[T]) Err() error {
	if s.err != nil {
		return s.err
	}
	if s.errFn != nil {
		return s.errFn()
	}
	return nil
}

func (s *ChannelSource[T]) Close() error {
	var err error
	s.once.Do(func() {
		if s.closeFn != nil {
			err = s.closeFn()
		}
	})
	return err
}

// SliceSource replays fixed frames, optionally failing after the last one.
type SliceSource[T any] struct {
	Frames []T
	Fail   error
	Closed bool

	pos int
}

func (s *SliceSource[T]) Next() bool {
	if s.pos >= len(s.Frames) {
		return false
	}
	s.pos++
	return true
}

func (s *SliceSource[T]) Current() T {
	return s.Frames[s.pos-1]
}

func (s *SliceSource[T]) Err() error {
	if s.pos >= len(s.Frames) {
		return s.Fail
	}
	return nil
}

func (s *SliceSource[T]) Close() error {
	s.Closed = true
	return nil
}
