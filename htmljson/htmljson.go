// Package htmljson pulls the embedded initial-data JSON document out of a
// search results page.
package htmljson

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	apperrors "github.com/nijaru/yt-search/errors"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"golang.org/x/net/html"
)

const (
	desktopDataMarker   = `window["ytInitialData"] =`
	desktopPlayerMarker = `window["ytInitialPlayerResponse"] =`
	inlineDataMarker    = "var ytInitialData = "
	mobileDataSelector  = "div#initial-data"
)

var (
	ErrDataNotFound = errors.New("initial data not found in page")
	ErrInvalidJSON  = errors.New("initial data is not valid JSON")
)

// Extract finds the initial-data payload in raw and returns it as a parsed
// document. Mobile pages carry it inside div#initial-data, desktop pages in
// an inline script.
func Extract(raw []byte, mobile bool) (gjson.Result, error) {
	const op = "htmljson.Extract"

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return gjson.Result{}, apperrors.ExtractFailed(op, err, "failed to parse page HTML")
	}

	var payload string
	if mobile {
		payload = mobilePayload(doc)
	} else {
		payload = desktopPayload(doc)
	}
	if payload == "" {
		return gjson.Result{}, apperrors.ExtractFailed(op, ErrDataNotFound, "no initial data in page")
	}

	if !gjson.Valid(payload) {
		return gjson.Result{}, apperrors.ExtractFailed(op, ErrInvalidJSON, "initial data could not be parsed")
	}
	return gjson.Parse(payload), nil
}

// mobilePayload returns the text of div#initial-data. The payload is
// sometimes served wrapped in an HTML comment, which goquery's Text skips.
func mobilePayload(doc *goquery.Document) string {
	sel := doc.Find(mobileDataSelector).First()
	if sel.Length() == 0 {
		return ""
	}

	var b strings.Builder
	for c := sel.Nodes[0].FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode, html.CommentNode:
			b.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(b.String())
}

func desktopPayload(doc *goquery.Document) string {
	var payload string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if start := strings.Index(text, desktopDataMarker); start >= 0 {
			payload = sliceWindowData(text[start+len(desktopDataMarker):])
			return false
		}
		if start := strings.Index(text, inlineDataMarker); start >= 0 {
			payload = string(balancedObject([]byte(text[start+len(inlineDataMarker):])))
			return false
		}
		return true
	})
	return payload
}

// sliceWindowData cuts the assignment off where the player response begins
// and trims the statement terminator.
func sliceWindowData(text string) string {
	if end := strings.Index(text, desktopPlayerMarker); end >= 0 {
		text = text[:end]
	}
	return strings.Trim(text, "\n\r; ")
}

// balancedObject returns the JSON object starting at b[0] by tracking brace
// depth outside of string literals.
func balancedObject(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}
