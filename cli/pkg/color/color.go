package color

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

const reset = "\033[0m"

// ANSI SGR parameters
const (
	FgBlack   = 30
	FgRed     = 31
	FgGreen   = 32
	FgYellow  = 33
	FgBlue    = 34
	FgMagenta = 35
	FgCyan    = 36
	FgWhite   = 37

	Bold      = 1
	Dim       = 2
	Underline = 4
)

// Color holds a set of SGR attributes applied around printed text.
type Color struct {
	params []int
}

// New creates a Color with the given attributes.
func New(attrs ...int) *Color {
	return &Color{params: attrs}
}

func (c *Color) sequence() string {
	if len(c.params) == 0 {
		return ""
	}
	parts := make([]string, len(c.params))
	for i, p := range c.params {
		parts[i] = strconv.Itoa(p)
	}
	return "\033[" + strings.Join(parts, ";") + "m"
}

// Printf prints formatted colored output to stdout.
func (c *Color) Printf(format string, a ...interface{}) {
	fmt.Printf(c.sequence()+format+reset, a...)
}

// Fprintf prints formatted colored output to the given writer.
func (c *Color) Fprintf(w io.Writer, format string, a ...interface{}) {
	fmt.Fprintf(w, c.sequence()+format+reset, a...)
}

// Sprint returns the string wrapped in this color's escape codes.
func (c *Color) Sprint(s string) string {
	return c.sequence() + s + reset
}
