package scraper

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var numberPattern = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?`)

// parseNumber extracts the first number in s, ignoring thousands separators
// and surrounding text such as "1650?" or "Rating: 1,234".
func parseNumber(s string) (float64, bool) {
	m := numberPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseHTML(raw []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %w", ErrUnexpectedResponse, err)
	}
	return doc, nil
}

// labelledValue finds the leaf element whose text equals label (case-insensitive)
// and returns the text of the element that follows it, falling back to the
// parent's next sibling for label/value pairs split across wrappers.
func labelledValue(doc *goquery.Document, label string) (string, bool) {
	var (
		value string
		found bool
	)
	doc.Find("body *").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Children().Length() > 0 {
			return true
		}
		if !strings.EqualFold(strings.TrimSpace(s.Text()), label) {
			return true
		}
		if next := s.Next(); next.Length() > 0 {
			value = strings.TrimSpace(next.Text())
		} else {
			value = strings.TrimSpace(s.Parent().Next().Text())
		}
		found = value != ""
		return !found
	})
	return value, found
}

// notFoundMessage matches the wording judges use for unknown users.
func notFoundMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")
}
