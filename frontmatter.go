package wobsite

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const frontMatterDelimiter = "---"

// Date layouts accepted in front matter, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// FrontMatter is the metadata header of a page: a JSON object enclosed in
// `---` delimiter lines at the top of the document.
type FrontMatter struct {
	// Title of the page. Required and non-empty.
	Title string

	// Date the page was published. Optional; defaults to the current time
	// in UTC when absent or unparsable, and is never changed when the
	// document carries a valid date.
	Date time.Time

	// dateSet records whether the document carried a date key at all, so
	// callers can tell an authored date apart from the fallback.
	dateSet bool
}

// HasDate reports whether the document's front matter carried a date key,
// as opposed to Date holding the parse-time fallback.
func (f FrontMatter) HasDate() bool {
	return f.dateSet
}

// splitFrontMatter separates the front matter block (`---` delimited) from
// the Markdown body. The returned header excludes the delimiter lines.
func splitFrontMatter(content []byte) (header, body []byte, err error) {
	nl := detectNewline(content)

	open := []byte(frontMatterDelimiter + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, nil, ErrNoFrontMatter
	}

	rest := content[len(open):]
	if bytes.HasPrefix(rest, open) {
		return []byte{}, rest[len(open):], nil
	}

	closeSeq := []byte(nl + frontMatterDelimiter + nl)
	idx := bytes.Index(rest, closeSeq)
	if idx < 0 {
		// A closing delimiter at the end of the file, without a trailing
		// newline, still closes the block; the body is then empty.
		if closeEOF := []byte(nl + frontMatterDelimiter); bytes.HasSuffix(rest, closeEOF) {
			return rest[:len(rest)-len(closeEOF)], []byte{}, nil
		}
		return nil, nil, ErrMissingClosingDelimiter
	}

	return rest[:idx], rest[idx+len(closeSeq):], nil
}

// parseFrontMatter decodes the header block into a FrontMatter, validating
// the required fields explicitly.
func parseFrontMatter(header []byte) (FrontMatter, error) {
	var raw struct {
		Title *string `json:"title"`
		Date  *string `json:"date"`
	}

	if err := json.Unmarshal(header, &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return FrontMatter{}, &FrontMatterKeyError{Key: typeErr.Field}
		}
		return FrontMatter{}, fmt.Errorf("%w: %s", ErrInvalidFrontMatter, err)
	}

	if raw.Title == nil || *raw.Title == "" {
		return FrontMatter{}, &FrontMatterKeyError{Key: "title"}
	}

	return FrontMatter{
		Title:   *raw.Title,
		Date:    parseDate(raw.Date),
		dateSet: raw.Date != nil,
	}, nil
}

// parseDate never fails: a missing or unparsable date falls back to the
// current time in UTC.
func parseDate(value *string) time.Time {
	if value != nil {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, *value); err == nil {
				return t
			}
		}
	}

	return time.Now().UTC()
}

func detectNewline(content []byte) string {
	for i := range content {
		if content[i] == '\r' && i+1 < len(content) && content[i+1] == '\n' {
			return "\r\n"
		}
		if content[i] == '\n' {
			return "\n"
		}
	}

	return "\n"
}
