package rooms

import "fmt"

// CodeSpace is the number of distinct 4-digit codes.
const CodeSpace = 10000

// FormatCode renders n as a zero-padded 4-digit code.
func FormatCode(n int) string {
	return fmt.Sprintf("%04d", n)
}

// ValidCode reports whether code is exactly four ASCII digits.
func ValidCode(code string) bool {
	if len(code) != 4 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
