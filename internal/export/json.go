package export

import (
	"encoding/json"
	"net/url"

	"github.com/lotas/ctxkeep/internal/types"
)

// JSON formats a context as an indented JSON document that
// contexts.Store.Import accepts.
func JSON(c types.Context) (string, error) {
	c.Normalize()
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}

func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Hostname()
}
