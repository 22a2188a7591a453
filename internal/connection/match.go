package connection

// DefaultMatch is sent when no search pattern is set
const DefaultMatch = "*"

// IsGlobPattern reports whether match contains an unescaped glob
// metacharacter. Plain names are looked up directly instead of scanned.
func IsGlobPattern(match string) bool {
	for i := 0; i < len(match); i++ {
		switch match[i] {
		case '\\':
			i++
		case '*', '?', '[':
			return true
		}
	}
	return false
}

// UnescapeGlob strips glob escapes so an exact name can be looked up
func UnescapeGlob(match string) []byte {
	out := make([]byte, 0, len(match))
	for i := 0; i < len(match); i++ {
		if match[i] == '\\' && i+1 < len(match) {
			i++
		}
		out = append(out, match[i])
	}
	return out
}
