// Package errs provides the error type shared by the schema builders, the
// reflector and the printer.
//
// Every failure raised while turning metadata into schema text is an *errs.Error
// tagged with a Kind. Callers use the Is* predicates to tell a bad model
// declaration apart from a missing data source or a formatter rejection:
//
//	text, err := printer.Print(ctx, s, printer.Normalizer{})
//	if errs.IsFormat(err) {
//		var e *errs.Error
//		errors.As(err, &e)
//		log.Println(e.Text) // the schema text the formatter refused
//	}
package errs

import (
	"errors"
	"strings"
)

// Kind categorises a schema generation failure.
type Kind int

const (
	KindUnknown        Kind = iota
	KindClassification      // payload type matches no scalar or entity
	KindConfiguration       // printer input is missing something it needs
	KindStructural          // builder input would produce inconsistent IR
	KindFormat              // the formatter rejected the generated text
)

func (k Kind) String() string {
	switch k {
	case KindClassification:
		return "classification"
	case KindConfiguration:
		return "configuration"
	case KindStructural:
		return "structural"
	case KindFormat:
		return "format"
	default:
		return "unknown"
	}
}

// Error is the error type returned by the schema core.
type Error struct {
	Kind    Kind
	Entity  string // entity name, if known
	Field   string // field name, if known
	Message string
	Text    string // offending schema text, set for KindFormat
	Cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(e.Kind.String())
	b.WriteString("]")
	if e.Entity != "" {
		b.WriteString(" entity ")
		b.WriteString(e.Entity)
	}
	if e.Field != "" {
		b.WriteString(" field ")
		b.WriteString(e.Field)
	}
	if e.Message != "" {
		if e.Entity != "" || e.Field != "" {
			b.WriteString(":")
		}
		b.WriteString(" ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an *Error with the given kind and message and no cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an *Error with the given kind, message and underlying cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// InEntity returns a copy of e scoped to the named entity.
func (e *Error) InEntity(name string) *Error {
	c := *e
	c.Entity = name
	return &c
}

// InField returns a copy of e scoped to the named field.
func (e *Error) InField(name string) *Error {
	c := *e
	c.Field = name
	return &c
}

// IsClassification reports whether err is a payload classification failure.
func IsClassification(err error) bool {
	return KindOf(err) == KindClassification
}

// IsConfiguration reports whether err is a printer configuration failure.
func IsConfiguration(err error) bool {
	return KindOf(err) == KindConfiguration
}

// IsStructural reports whether err is a structural invariant violation.
func IsStructural(err error) bool {
	return KindOf(err) == KindStructural
}

// IsFormat reports whether err was raised by the formatter.
func IsFormat(err error) bool {
	return KindOf(err) == KindFormat
}

// KindOf extracts the Kind from any error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
