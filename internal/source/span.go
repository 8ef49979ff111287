package source

import (
	"fmt"
)

type Span struct {
	Doc   DocumentID
	Start uint32 // в байтах включительно
	End   uint32 // в байтах не включительно
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%s:%d-%d", s.Doc.Short(), s.Start, s.End)
}

// Cover extends the span to include other. Spans from different documents do
// not cover each other.
func (s Span) Cover(other Span) Span {
	if s.Doc != other.Doc {
		return s
	}
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}
