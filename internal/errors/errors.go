// Package errors provides annotated errors for the OCTANE blend
// optimization server. Errors carry the failing operation and component
// plus the call frames captured at construction, so a log line is enough
// to locate a failure without a debugger.
package errors

import (
	"fmt"
	"runtime"
	"strings"
)

// Frame is one captured call site.
type Frame struct {
	Function string
	File     string
	Line     int
}

func (f Frame) String() string {
	return fmt.Sprintf("%s (%s:%d)", f.Function, f.File, f.Line)
}

// Error annotates an underlying error with service context.
type Error struct {
	Msg       string
	Operation string
	Component string
	Err       error
	Frames    []Frame
}

// Error implements the error interface. The rendering is
// "component: operation: message: cause", omitting empty parts.
func (e *Error) Error() string {
	parts := make([]string, 0, 4)
	if e.Component != "" {
		parts = append(parts, e.Component)
	}
	if e.Operation != "" {
		parts = append(parts, e.Operation)
	}
	if e.Msg != "" {
		parts = append(parts, e.Msg)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithOperation sets the failing operation and returns the error.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// WithComponent sets the failing component and returns the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// StackTrace renders the captured frames, innermost first.
func (e *Error) StackTrace() []string {
	out := make([]string, len(e.Frames))
	for i, f := range e.Frames {
		out[i] = f.String()
	}
	return out
}

// New creates an error with a message and a captured stack.
func New(msg string) *Error {
	return &Error{Msg: msg, Frames: capture()}
}

// Errorf creates an error with a formatted message and a captured stack.
func Errorf(format string, args ...interface{}) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...), Frames: capture()}
}

// Wrap annotates err with a message. An err that is already an *Error keeps
// its original frames; otherwise the stack is captured here. Wrap returns
// nil for a nil err.
func Wrap(err error, msg string) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		e.Msg = msg
		return e
	}
	return &Error{Msg: msg, Err: err, Frames: capture()}
}

// Wrapf annotates err with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// capture records the caller frames above the constructor, skipping runtime
// internals and this package.
func capture() []Frame {
	var pcs [32]uintptr
	n := runtime.Callers(3, pcs[:])
	if n == 0 {
		return nil
	}

	cf := runtime.CallersFrames(pcs[:n])
	frames := make([]Frame, 0, n)
	for {
		frame, more := cf.Next()
		if !strings.Contains(frame.File, "runtime/") &&
			!strings.Contains(frame.File, "internal/errors") {
			frames = append(frames, Frame{
				Function: frame.Function,
				File:     frame.File,
				Line:     frame.Line,
			})
		}
		if !more {
			break
		}
	}
	return frames
}
