package parser

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ItemNameIDMarker is the call in the listing page's trailing inline script
// whose first argument is the item_nameid.
const ItemNameIDMarker = "Market_LoadOrderSpread"

// ExtractItemNameID recovers the numeric item_nameid from a listing page.
// Only the last <script> element of the document is inspected.
func ExtractItemNameID(html []byte) (int64, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return 0, &ExtractionError{Reason: "parse html", Err: err}
	}

	scripts := doc.Find("script")
	if scripts.Length() == 0 {
		return 0, &ExtractionError{Reason: "no script element"}
	}
	body := scripts.Last().Text()

	idx := strings.Index(body, ItemNameIDMarker)
	if idx < 0 {
		return 0, &ExtractionError{Reason: "marker " + ItemNameIDMarker + " not found in last script"}
	}
	rest := strings.TrimLeft(body[idx+len(ItemNameIDMarker):], " \t\r\n")
	if !strings.HasPrefix(rest, "(") {
		return 0, &ExtractionError{Reason: "marker is not followed by a call"}
	}
	rest = rest[1:]
	end := strings.Index(rest, ")")
	if end < 0 {
		return 0, &ExtractionError{Reason: "unterminated call after marker"}
	}

	token := strings.TrimSpace(rest[:end])
	id, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return 0, &ExtractionError{Reason: "argument is not an integer", Err: err}
	}
	return id, nil
}
