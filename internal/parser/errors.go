package parser

import "fmt"

// MalformedResponseError means the payload decoded but is missing the
// success flag or an expected field, or the success flag is false.
type MalformedResponseError struct {
	Payload string // catalog | catalog entry | history
	Reason  string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed %s response: %s: %v", e.Payload, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed %s response: %s", e.Payload, e.Reason)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// ExtractionError means the item_nameid could not be recovered from a
// listing page.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract item_nameid: %s: %v", e.Reason, e.Err)
	}
	return "extract item_nameid: " + e.Reason
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// DateFormatError is reported for a single history point whose date does not
// match the upstream format. It never fails a whole history payload.
type DateFormatError struct {
	Value string
	Err   error
}

func (e *DateFormatError) Error() string {
	return fmt.Sprintf("unparsable history date %q: %v", e.Value, e.Err)
}

func (e *DateFormatError) Unwrap() error { return e.Err }
