package stream

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// 一个单词加上其后的空白。
var wordPattern = regexp.MustCompile(`\S+\s+`)

// Smoother 把文本增量按单词切分后再写出，每个单词之间可选地停顿 delay。
// 收到非文本事件时先把缓冲的文本全部写出，保证事件顺序不变。
type Smoother struct {
	ctx   context.Context
	next  Writer
	delay time.Duration
	buf   strings.Builder
}

func NewSmoother(ctx context.Context, next Writer, delay time.Duration) *Smoother {
	return &Smoother{ctx: ctx, next: next, delay: delay}
}

func (s *Smoother) Write(e Event) error {
	if e.Kind != KindText {
		if err := s.Flush(); err != nil {
			return err
		}
		return s.next.Write(e)
	}

	s.buf.WriteString(e.Text)
	pending := s.buf.String()
	for {
		loc := wordPattern.FindStringIndex(pending)
		if loc == nil {
			break
		}
		if err := s.next.Write(Text(pending[:loc[1]])); err != nil {
			return err
		}
		pending = pending[loc[1]:]
		if err := s.wait(); err != nil {
			return err
		}
	}
	s.buf.Reset()
	s.buf.WriteString(pending)
	return nil
}

// Flush 写出缓冲区中剩余的文本。
func (s *Smoother) Flush() error {
	if s.buf.Len() == 0 {
		return nil
	}
	rest := s.buf.String()
	s.buf.Reset()
	return s.next.Write(Text(rest))
}

func (s *Smoother) wait() error {
	if s.delay <= 0 {
		return nil
	}
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	case <-t.C:
		return nil
	}
}
