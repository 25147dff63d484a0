package logger

import "strings"

// stripAnsiCodes removes \x1b[...X escape sequences. Byte-wise scan keeps
// the file logging path free of regex allocations.
func stripAnsiCodes(s string) string {
	if !strings.ContainsRune(s, '\x1b') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] == '\x1b' && i+1 < len(s) && s[i+1] == '[' {
			// skip forward to the terminating letter
			i += 2
			for i < len(s) && !isAlpha(s[i]) {
				i++
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isAlpha(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
