package parser

import (
	"errors"
	"fmt"
)

// Kind classifies a per-record validation failure.
type Kind string

const (
	KindInvalidExternalCode Kind = "invalid_external_code"
	KindReferenceNotFound   Kind = "reference_not_found"
	KindInvalidPostalCode   Kind = "invalid_postal_code"
	KindInvalidCoordinate   Kind = "invalid_coordinate"
	KindUnknownEnumCode     Kind = "unknown_enum_code"
	KindPriceOutOfRange     Kind = "price_out_of_range"
)

// ParseError describes one validation failure, attributable to a station and
// field for reporting. Fatal reports whether the failure dropped the whole
// record; per-fuel price failures leave the rest of the record intact.
type ParseError struct {
	Kind        Kind
	StationCode string
	Field       string
	Reason      string
	Fatal       bool
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("station %s: %s: %s (%s)", e.StationCode, e.Field, e.Reason, e.Kind)
}

// Envelope errors abort the whole run before any record is parsed.
var (
	ErrFeedStatus       = errors.New("feed result status not OK")
	ErrFeedDate         = errors.New("feed date missing or unparsable")
	ErrFeedDateMismatch = errors.New("feed date does not match processing date")
	ErrFeedEmpty        = errors.New("feed station list missing or empty")
)
