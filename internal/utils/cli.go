package utils

import (
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

// SplitStringIntoCommandAndArguments parses an interactive shell line into a
// lowercase command word and its arguments, honoring quoting so that values
// containing spaces survive intact.
func SplitStringIntoCommandAndArguments(line string) (string, []string, error) {
	words, err := shellquote.Split(line)
	if err != nil {
		return "", nil, err
	}
	if len(words) == 0 {
		return "", nil, fmt.Errorf("empty command")
	}
	return strings.ToLower(words[0]), words[1:], nil
}
