package extract

import (
	"errors"
	"fmt"
)

// Kind classifies why an extraction failed.
type Kind int

const (
	KindEnvelopeDecode Kind = iota + 1
	KindNoFencedBlock
	KindJSONDecode
)

func (k Kind) String() string {
	switch k {
	case KindEnvelopeDecode:
		return "envelope decode error"
	case KindNoFencedBlock:
		return "no fenced block"
	case KindJSONDecode:
		return "json decode error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrEnvelopeDecode = errors.New(KindEnvelopeDecode.String())
	ErrNoFencedBlock  = errors.New(KindNoFencedBlock.String())
	ErrJSONDecode     = errors.New(KindJSONDecode.String())
)

// Error is the only error type Extract returns.
type Error struct {
	Kind Kind
	// Candidate is the string that failed to decode. Only set for KindJSONDecode.
	Candidate string
	Err       error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrEnvelopeDecode:
		return e.Kind == KindEnvelopeDecode
	case ErrNoFencedBlock:
		return e.Kind == KindNoFencedBlock
	case ErrJSONDecode:
		return e.Kind == KindJSONDecode
	}
	return false
}

// KindOf reports the Kind of err, or 0 when err is not an extraction error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
