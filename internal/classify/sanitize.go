package classify

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxInputSize caps one utterance at 4KB unless overridden.
	DefaultMaxInputSize = 4096
	// EnvMaxInputSize is the environment variable overriding the cap.
	EnvMaxInputSize = "REFRACT_MAX_INPUT_SIZE"
)

var (
	ErrInputTooLarge = errors.New("utterance exceeds size limit")
	ErrInvalidUTF8   = errors.New("utterance is not valid UTF-8")
)

// Sanitize validates one raw utterance and returns it with unsafe control
// characters removed. Utterances arrive over untrusted transports and end
// up in logs and terminal output, so ESC, NUL and friends are dropped
// while whitespace forms survive. Oversized input is rejected rather than
// truncated; a truncation could flip the meaning of an answer.
func Sanitize(input string) (string, error) {
	limit := maxInputSize()
	if len(input) > limit {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}
	return strings.Map(dropUnsafe, input), nil
}

// dropUnsafe removes control runes except the whitespace ones the
// classifier treats as separators.
func dropUnsafe(r rune) rune {
	switch r {
	case '\n', '\t', '\r':
		return r
	}
	if unicode.IsControl(r) {
		return -1
	}
	return r
}

func maxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}
