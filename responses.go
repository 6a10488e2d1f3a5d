package empmos

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Envelope is the fixed wrapper around every response of the service.
type Envelope struct {
	ErrorCode    int             `json:"errorCode"`
	ErrorMessage string          `json:"errorMessage"`
	ExecTime     float64         `json:"execTime"`
	SessionID    *string         `json:"session_id,omitempty"`
	Result       json.RawMessage `json:"result"`
}

// decodeResult unmarshals the envelope result into out. A missing or null
// result leaves out untouched.
func (e *Envelope) decodeResult(out any) error {
	if out == nil || len(e.Result) == 0 || string(e.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Result, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

// Record is a loosely typed JSON object. Only the fields the client inspects
// get named accessors.
type Record map[string]any

// String returns the field as a string. Numbers are formatted without
// exponent; missing or null fields yield "".
func (r Record) String(key string) string {
	return stringValue(r[key])
}

// Bool returns the field as a bool.
func (r Record) Bool(key string) bool {
	v, _ := r[key].(bool)
	return v
}

// Int returns the field as an int when it is a JSON number or a numeric string.
func (r Record) Int(key string) (int, bool) {
	switch v := r[key].(type) {
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	default:
		return 0, false
	}
}

// Float returns the field as a float64. Strings with either a point or a
// comma decimal separator are accepted.
func (r Record) Float(key string) (float64, bool) {
	return floatValue(r[key])
}

// Record returns a nested object.
func (r Record) Record(key string) Record {
	if m, ok := r[key].(map[string]any); ok {
		return Record(m)
	}
	if m, ok := r[key].(Record); ok {
		return m
	}
	return nil
}

// Records returns a nested array of objects, skipping non-object items.
func (r Record) Records(key string) []Record {
	arr, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]Record, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Record(m))
		}
	}
	return out
}

// Has reports whether the field is present and not null.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func floatValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", "."), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// LoginResult is returned by Login, e.g. {is_filled, surname, name, session_id, request_id}.
type LoginResult = Record

// Profile holds the account owner data (firstname, lastname, msisdn, email, ...).
type Profile = Record

// Flat is a residence attached to the account.
type Flat Record

// ID returns the service-side flat identifier used by every per-flat call.
func (f Flat) ID() string { return Record(f).String("flat_id") }

// Name returns the user-chosen flat name.
func (f Flat) Name() string { return Record(f).String("name") }

// Address returns the flat address.
func (f Flat) Address() string { return Record(f).String("address") }

// Number returns the flat number within the building.
func (f Flat) Number() string { return Record(f).String("flat_number") }

// Paycode returns the payer code of the flat.
func (f Flat) Paycode() string { return Record(f).String("paycode") }

// Address search results carry unom/unad identifiers needed by AddFlat.
type Address = Record

// CarFines groups fines by payment state: "paid" and "unpaid".
type CarFines Record

// Unpaid returns the unpaid fines.
func (c CarFines) Unpaid() []Record { return Record(c).Records("unpaid") }

// Paid returns the paid fines.
func (c CarFines) Paid() []Record { return Record(c).Records("paid") }

// EPD is the summary of a consolidated utility bill for a period.
type EPD = Record

// EEPD is a response of the electronic bill document endpoint. While the
// document is being prepared it only carries a request id.
type EEPD Record

// RequestID returns the "rid" the service issued for a pending document.
func (e EEPD) RequestID() string { return Record(e).String("rid") }

// PDF returns the document link once the document is ready.
func (e EEPD) PDF() string { return Record(e).String("pdf") }

// Ready reports whether the response carries the document.
func (e EEPD) Ready() bool { return Record(e).Has("pdf") }

// ElectroCounters describes the electricity meter of a flat with its tariff zones.
type ElectroCounters Record

// Zones returns the per-tariff-zone current values.
func (e ElectroCounters) Zones() []Record { return Record(e).Records("zones") }
