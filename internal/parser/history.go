package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// historyDateLayout matches the part of "Dec 06 2013 01: +0" before the colon.
const historyDateLayout = "Jan 2 2006 15"

// HistoryPoint is one decoded entry of the price history series.
type HistoryPoint struct {
	Date   time.Time
	Price  decimal.Decimal
	Volume int
}

type historyResponse struct {
	Success     *bool            `json:"success"`
	PricePrefix string           `json:"price_prefix"`
	PriceSuffix string           `json:"price_suffix"`
	Prices      *json.RawMessage `json:"prices"`
}

// ParseHistoryPoints decodes a price history payload. Points whose date
// cannot be parsed are left out and reported in skipped; any other defect
// fails the whole payload and no points are returned.
func ParseHistoryPoints(raw []byte) (points []HistoryPoint, skipped []error, err error) {
	var resp historyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, nil, &MalformedResponseError{Payload: "history", Reason: "invalid json", Err: err}
	}
	if resp.Success == nil {
		return nil, nil, &MalformedResponseError{Payload: "history", Reason: "missing success field"}
	}
	if !*resp.Success {
		return nil, nil, &MalformedResponseError{Payload: "history", Reason: "success field was false"}
	}
	if resp.Prices == nil {
		return nil, nil, &MalformedResponseError{Payload: "history", Reason: "missing prices field"}
	}

	var rows [][]json.RawMessage
	if err := json.Unmarshal(*resp.Prices, &rows); err != nil {
		return nil, nil, &MalformedResponseError{Payload: "history", Reason: "prices is not an array of rows", Err: err}
	}

	points = make([]HistoryPoint, 0, len(rows))
	for i, row := range rows {
		if len(row) != 3 {
			return nil, nil, &MalformedResponseError{Payload: "history", Reason: fmt.Sprintf("row %d has %d fields, want 3", i, len(row))}
		}

		var dateText string
		if err := json.Unmarshal(row[0], &dateText); err != nil {
			return nil, nil, &MalformedResponseError{Payload: "history", Reason: fmt.Sprintf("row %d date is not a string", i), Err: err}
		}
		price, err := decodePrice(row[1])
		if err != nil {
			return nil, nil, &MalformedResponseError{Payload: "history", Reason: fmt.Sprintf("row %d price", i), Err: err}
		}
		volume, err := decodeVolume(row[2])
		if err != nil {
			return nil, nil, &MalformedResponseError{Payload: "history", Reason: fmt.Sprintf("row %d volume", i), Err: err}
		}

		date, err := ParseHistoryDate(dateText)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		points = append(points, HistoryPoint{Date: date, Price: price, Volume: volume})
	}
	return points, skipped, nil
}

// ParseHistoryDate parses "Mon DD YYYY HH: +O" where O is a whole-hour
// UTC offset. The result is in UTC.
func ParseHistoryDate(s string) (time.Time, error) {
	head, offsetText, found := strings.Cut(s, ":")
	if !found {
		return time.Time{}, &DateFormatError{Value: s, Err: fmt.Errorf("missing hour separator")}
	}

	t, err := time.ParseInLocation(historyDateLayout, strings.TrimSpace(head), time.UTC)
	if err != nil {
		return time.Time{}, &DateFormatError{Value: s, Err: err}
	}

	offsetText = strings.TrimSpace(offsetText)
	if offsetText == "" {
		return t, nil
	}
	offset, err := strconv.Atoi(offsetText)
	if err != nil {
		return time.Time{}, &DateFormatError{Value: s, Err: fmt.Errorf("offset %q: %w", offsetText, err)}
	}
	return t.Add(-time.Duration(offset) * time.Hour), nil
}

func decodePrice(raw json.RawMessage) (decimal.Decimal, error) {
	text := strings.TrimSpace(string(raw))
	if strings.HasPrefix(text, `"`) {
		if err := json.Unmarshal(raw, &text); err != nil {
			return decimal.Decimal{}, err
		}
	}
	return decimal.NewFromString(text)
}

func decodeVolume(raw json.RawMessage) (int, error) {
	text := strings.TrimSpace(string(raw))
	if strings.HasPrefix(text, `"`) {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, err
		}
	}
	return strconv.Atoi(strings.ReplaceAll(text, ",", ""))
}
