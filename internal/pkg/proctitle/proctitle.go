// Package proctitle names the running server process.
package proctitle

import (
	"errors"
	"strings"
)

// Default is the title the server runs under.
const Default = "club-api"

func clean(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", errors.New("proctitle: empty title")
	}
	return title, nil
}
