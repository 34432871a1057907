package extract

import (
	"fmt"
	"strings"

	"github.com/lu4p/cat"
)

// readCat reads OpenDocument text and RTF through lu4p/cat, which detects
// the format from the content.
func readCat(content []byte) (string, error) {
	text, err := cat.FromBytes(content)
	if err != nil {
		return "", fmt.Errorf("extract document: %w", err)
	}
	return strings.TrimSpace(text), nil
}
