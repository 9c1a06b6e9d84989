// Package path parses paths of the form "0:/bin/shell.elf": a single-digit
// drive number, a colon, a slash, and slash-separated components. Grounded
// on the original kernel's pparser.c.
package path

import (
	"strconv"
	"strings"

	"peachkernel/internal/config"
	"peachkernel/internal/kerr"
)

// Root is a parsed path: a drive number and the ordered list of path
// components after the "N:/" prefix.
type Root struct {
	DriveNo uint8
	Parts   []string
}

// IsValid reports whether the first three characters of p form a valid
// drive prefix: a digit, a colon, and a slash.
func IsValid(p string) bool {
	if len(p) < 3 {
		return false
	}
	return p[0] >= '0' && p[0] <= '9' && p[1] == ':' && p[2] == '/'
}

// DriveNo extracts the drive number from a valid path prefix.
func DriveNo(p string) (uint8, error) {
	if !IsValid(p) {
		return 0xFF, kerr.New("path.DriveNo", kerr.InvalidArgument)
	}
	n, _ := strconv.Atoi(string(p[0]))
	return uint8(n), nil
}

// Parse splits a path like "0:/bin/shell.elf" into a Root.
func Parse(p string) (*Root, error) {
	if !IsValid(p) {
		return nil, kerr.New("path.Parse", kerr.InvalidArgument)
	}

	drive, err := DriveNo(p)
	if err != nil {
		return nil, err
	}

	// Walk rest one part at a time rather than strings.Split: a leading or
	// consecutive '/' means the next part is empty, which
	// path_get_path_part rejects outright rather than skipping. A single
	// trailing '/' is fine (it is consumed after the last real part, then
	// the walk simply ends), matching path_get_path_part's own behavior.
	rest := p[3:]
	var parts []string
	for len(rest) > 0 {
		if rest[0] == '/' {
			return nil, kerr.New("path.Parse", kerr.InvalidArgument)
		}

		part := rest
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			part = rest[:i]
			rest = rest[i+1:]
		} else {
			rest = ""
		}

		if len(part) > config.PathMaxPartNameLength {
			return nil, kerr.New("path.Parse", kerr.InvalidArgument)
		}
		parts = append(parts, part)
		if len(parts) > config.PathMaxParts {
			return nil, kerr.New("path.Parse", kerr.InvalidArgument)
		}
	}

	if len(parts) == 0 {
		return nil, kerr.New("path.Parse", kerr.InvalidArgument)
	}

	return &Root{DriveNo: drive, Parts: parts}, nil
}

// First returns the first path component, or "" if the path had none.
func (r *Root) First() string {
	if len(r.Parts) == 0 {
		return ""
	}
	return r.Parts[0]
}
