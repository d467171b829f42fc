package domain

import "time"

const (
	// FlightTimeInputLayout is DD/MM/YYYY HH:MM, accepted on flight writes.
	FlightTimeInputLayout = "02/01/2006 15:04"
	// FlightTimeOutputLayout is DD/MM/YYYY HH:MM:SS, used when rendering flights.
	FlightTimeOutputLayout = "02/01/2006 15:04:05"
	// OrderDateLayout is DD-MM-YYYY, the rendered order submission date.
	OrderDateLayout = "02-01-2006"

	filterDateLayout = "02/01/2006"
)

// ParseFlightTime parses a schedule field; field names the input in the error.
func ParseFlightTime(field, value string) (time.Time, error) {
	t, err := time.ParseInLocation(FlightTimeInputLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, NewValidationError(field, "invalid datetime format, use DD/MM/YYYY HH:MM")
	}
	return t, nil
}

// ParseFilterDate accepts DD/MM/YYYY HH:MM or a bare DD/MM/YYYY.
func ParseFilterDate(value string) (time.Time, bool) {
	if t, err := time.ParseInLocation(FlightTimeInputLayout, value, time.UTC); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation(filterDateLayout, value, time.UTC); err == nil {
		return t, true
	}
	return time.Time{}, false
}
