package delivery

import (
	"fmt"
	"strings"
)

// SharePath is the canonical (server, share, sub-path) triple for share-style
// transports.
type SharePath struct {
	Server string
	Share  string
	Path   string
}

// ParseShare resolves the accepted connection notations to one canonical
// triple before any network call is attempted:
//
//	192.168.1.100/documents
//	//192.168.1.100/documents
//	\\nas\share\folder\subfolder
//
// Malformed input fails with a descriptive error.
func ParseShare(raw string) (SharePath, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(raw), `\`, "/")
	normalized = strings.TrimLeft(normalized, "/")
	if normalized == "" {
		return SharePath{}, fmt.Errorf("share connection is empty")
	}

	parts := strings.Split(normalized, "/")
	cleaned := parts[:0]
	for _, part := range parts {
		if part != "" {
			cleaned = append(cleaned, part)
		}
	}
	if len(cleaned) < 2 {
		return SharePath{}, fmt.Errorf("share connection %q must contain a server and a share, e.g. server/share", raw)
	}
	if strings.ContainsAny(cleaned[0], " \t") {
		return SharePath{}, fmt.Errorf("share server %q contains whitespace", cleaned[0])
	}
	return SharePath{
		Server: cleaned[0],
		Share:  cleaned[1],
		Path:   strings.Join(cleaned[2:], "/"),
	}, nil
}

// String renders the canonical //server/share[/path] form.
func (s SharePath) String() string {
	out := "//" + s.Server + "/" + s.Share
	if s.Path != "" {
		out += "/" + s.Path
	}
	return out
}
