package remote

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Entry is one parsed row of a directory listing. It is rebuilt wholesale on
// every refresh and never persisted.
type Entry struct {
	Name        string
	IsDir       bool
	Size        int64
	Permissions string
	Owner       string
	Group       string
	// ModDisplay keeps the listing's date tokens as an opaque display
	// string; a structured time is only available through FileInfo.
	ModDisplay string
}

// ParseLine parses one Unix-style long listing line.
//
// The format is only loosely specified by servers, so the parser is
// deliberately forgiving: a line with fewer than nine whitespace tokens is
// re-split with two empty owner/group fields padded in, which accepts
// servers that omit ownership. Names containing spaces are truncated to the
// final token; that is a known limitation of the format, not of the parser.
func ParseLine(line string) (Entry, bool) {
	if strings.TrimSpace(line) == "" {
		return Entry{}, false
	}

	tokens := strings.Fields(line)
	if len(tokens) < 9 && len(tokens) >= 4 {
		// Relaxed re-split: assume "perms links size date... name" and
		// pad the missing owner/group columns.
		padded := make([]string, 0, len(tokens)+2)
		padded = append(padded, tokens[0], "", "")
		padded = append(padded, tokens[1:]...)
		tokens = padded
	}
	if len(tokens) < 9 {
		return Entry{}, false
	}

	e := Entry{
		Name:        tokens[len(tokens)-1],
		IsDir:       strings.HasPrefix(line, "d"),
		Permissions: tokens[0],
		Owner:       tokens[2],
		Group:       tokens[3],
		ModDisplay:  strings.Join(tokens[5:len(tokens)-1], " "),
	}
	if size, err := strconv.ParseInt(tokens[4], 10, 64); err == nil {
		e.Size = size
	}
	return e, true
}

// ParseLines parses a whole listing, dropping blank or unparsable lines and
// the "." and ".." pseudo-entries.
func ParseLines(lines []string) []Entry {
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		e, ok := ParseLine(line)
		if !ok {
			continue
		}
		if e.Name == "." || e.Name == ".." {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// FormatLong renders an entry back into the long listing shape both adapter
// families hand to their consumers. Entries with known ownership produce the
// full nine-token form; entries without produce the shorter ownerless form
// the relaxed re-split accepts.
func FormatLong(name string, isDir bool, size int64, mode string, owner, group string, modTime time.Time) string {
	if mode == "" {
		if isDir {
			mode = "drwxr-xr-x"
		} else {
			mode = "-rw-r--r--"
		}
	}
	when := modTime.Format("Jan _2 15:04")
	if owner != "" || group != "" {
		if owner == "" {
			owner = "-"
		}
		if group == "" {
			group = "-"
		}
		return fmt.Sprintf("%s %4d %s %s %12d %s %s", mode, 1, owner, group, size, when, name)
	}
	return fmt.Sprintf("%s %4d %12d %s %s", mode, 1, size, when, name)
}
