package extract

import (
	"strings"

	"github.com/lu4p/cat"
)

// extractWithCat handles ODT and RTF, which lu4p/cat detects from content.
func extractWithCat(content []byte) (string, error) {
	text, err := cat.FromBytes(content)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
