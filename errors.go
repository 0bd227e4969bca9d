package onion

import "fmt"

// Kind classifies a stage failure.
type Kind uint8

const (
	_ Kind = iota

	// envelope has no "<~" or no "~>" after it
	MissingDelimiter

	// envelope carries a byte above 0x7f
	NonAsciiInput

	// envelope carries a byte outside the Ascii85 alphabet that is not LF/CR
	InvalidSymbol

	// parity filtered byte count is not a multiple of 8
	MisalignedInput

	// stream too short for the first packet header
	TruncatedHeader

	// stage input smaller than its fixed layout
	ShortInput

	// block cipher padding malformed
	BadPadding

	// key unwrap integrity check failed
	KeyUnwrap

	// payload marker not found in stage output
	MissingPayload

	// stage output is not text
	NonUTF8Output

	_kind_end
)

func (k Kind) String() string {
	switch k {
	case MissingDelimiter:
		return "missing delimiter"
	case NonAsciiInput:
		return "non-ascii input"
	case InvalidSymbol:
		return "invalid symbol"
	case MisalignedInput:
		return "misaligned input"
	case TruncatedHeader:
		return "truncated header"
	case ShortInput:
		return "short input"
	case BadPadding:
		return "bad padding"
	case KeyUnwrap:
		return "key unwrap"
	case MissingPayload:
		return "missing payload"
	case NonUTF8Output:
		return "non-utf8 output"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

func (k Kind) Valid() bool { return 0 < k && k < _kind_end }

// FormatError reports malformed stage input. Two FormatError match under
// errors.Is when their kinds are equal, so callers compare against the
// Err* values below.
type FormatError struct {
	Kind Kind
	Msg  string
}

func (e *FormatError) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Msg
}

func (e *FormatError) Is(target error) bool {
	t, ok := target.(*FormatError)
	return ok && t.Kind == e.Kind
}

func Errorf(kind Kind, format string, args ...any) *FormatError {
	return &FormatError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

var (
	ErrMissingDelimiter = &FormatError{Kind: MissingDelimiter}
	ErrNonAsciiInput    = &FormatError{Kind: NonAsciiInput}
	ErrInvalidSymbol    = &FormatError{Kind: InvalidSymbol}
	ErrMisalignedInput  = &FormatError{Kind: MisalignedInput}
	ErrTruncatedHeader  = &FormatError{Kind: TruncatedHeader}
	ErrShortInput       = &FormatError{Kind: ShortInput}
	ErrBadPadding       = &FormatError{Kind: BadPadding}
	ErrKeyUnwrap        = &FormatError{Kind: KeyUnwrap}
	ErrMissingPayload   = &FormatError{Kind: MissingPayload}
	ErrNonUTF8Output    = &FormatError{Kind: NonUTF8Output}
)
