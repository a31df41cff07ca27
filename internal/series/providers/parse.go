package providers

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Layouts accepted for observation dates, tried in order. All are parsed
// without reference to the local time zone.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123,
	time.RFC1123Z,
}

// numberField reads key from rec as a float, accepting both JSON numbers and
// numeric strings.
func numberField(rec gjson.Result, key string) (float64, error) {
	return coerceNumber(rec.Get(key), key)
}

func coerceNumber(v gjson.Result, key string) (float64, error) {
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Num
	case gjson.String:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: field %q is not numeric: %q", ErrMalformedPayload, key, v.Str)
		}
		f = n
	default:
		if !v.Exists() {
			return 0, fmt.Errorf("%w: field %q is missing", ErrMalformedPayload, key)
		}
		return 0, fmt.Errorf("%w: field %q has type %s", ErrMalformedPayload, key, v.Type)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: field %q is not finite", ErrMalformedPayload, key)
	}
	return f, nil
}

// optionalNumber is numberField for fields that may be absent or null.
func optionalNumber(rec gjson.Result, key string) (*float64, error) {
	v := rec.Get(key)
	if !v.Exists() || v.Type == gjson.Null {
		return nil, nil
	}
	f, err := numberField(rec, key)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// volumeField reads a non-negative integer volume.
func volumeField(rec gjson.Result, key string) (int64, error) {
	f, err := numberField(rec, key)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return 0, fmt.Errorf("%w: field %q is negative", ErrMalformedPayload, key)
	}
	f = math.Round(f)
	if f >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: field %q overflows int64", ErrMalformedPayload, key)
	}
	return int64(f), nil
}

// parseDate converts a date string, or epoch milliseconds, to a UTC time.
func parseDate(v gjson.Result) (time.Time, error) {
	switch v.Type {
	case gjson.Number:
		return time.UnixMilli(v.Int()).UTC(), nil
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: unrecognized date %q", ErrMalformedPayload, s)
	default:
		return time.Time{}, fmt.Errorf("%w: date is missing", ErrMalformedPayload)
	}
}

// Today returns midnight of now's calendar date in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t := now.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
