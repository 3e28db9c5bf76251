package blob

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// ObjectPath resolves a media reference to the object path inside the bucket.
//
// Accepted forms:
//   - download URLs: https://<host>/v0/b/<bucket>/o/<escaped path>?alt=media&token=...
//   - gs://<bucket>/<path>
//   - bare relative paths such as stories/u1/abc.jpg
func ObjectPath(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrInvalidRef
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRef, err)
	}

	switch u.Scheme {
	case "http", "https":
		return downloadURLPath(u)
	case "gs":
		return cleanObjectPath(u.Path)
	case "":
		if u.Host != "" || u.RawQuery != "" || u.Fragment != "" {
			return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
		}

		return cleanObjectPath(u.Path)
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidRef, u.Scheme)
	}
}

// downloadURLPath extracts the object from /v0/b/<bucket>/o/<object>. The object is a
// single escaped segment, so splitting must happen on the escaped path.
func downloadURLPath(u *url.URL) (string, error) {
	segments := strings.Split(strings.TrimPrefix(u.EscapedPath(), "/"), "/")

	for i := 0; i+3 < len(segments); i++ {
		if segments[i] != "b" || segments[i+2] != "o" {
			continue
		}

		object, err := url.PathUnescape(strings.Join(segments[i+3:], "/"))
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidRef, err)
		}

		return cleanObjectPath(object)
	}

	return "", fmt.Errorf("%w: no object segment in %q", ErrInvalidRef, u.Path)
}

func cleanObjectPath(p string) (string, error) {
	p = path.Clean(strings.TrimPrefix(p, "/"))

	if p == "." || p == ".." || strings.HasPrefix(p, "../") || strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("%w: path %q", ErrInvalidRef, p)
	}

	return p, nil
}
