package extract

import "strings"

// extractPlain returns content as text, replacing invalid UTF-8 sequences.
func extractPlain(content []byte) (string, error) {
	return strings.ToValidUTF8(string(content), "�"), nil
}
