package retry

import (
	"context"
	"errors"

	"steam-market-harvester/internal/parser"
	"steam-market-harvester/internal/services/steam"
	"steam-market-harvester/internal/storage"
)

// Kind names the failure class of an error for log fields.
type Kind string

const (
	KindTransport  Kind = "transport"
	KindMalformed  Kind = "malformed_response"
	KindExtraction Kind = "extraction"
	KindDateFormat Kind = "date_format"
	KindStorage    Kind = "storage"
	KindCanceled   Kind = "canceled"
	KindUnknown    Kind = "unknown"
)

// Classify maps err onto the failure taxonomy.
func Classify(err error) Kind {
	var (
		transport  *steam.TransportError
		malformed  *parser.MalformedResponseError
		extraction *parser.ExtractionError
		dateFormat *parser.DateFormatError
		store      *storage.Error
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.As(err, &transport):
		return KindTransport
	case errors.As(err, &malformed):
		return KindMalformed
	case errors.As(err, &extraction):
		return KindExtraction
	case errors.As(err, &dateFormat):
		return KindDateFormat
	case errors.As(err, &store):
		return KindStorage
	default:
		return KindUnknown
	}
}
