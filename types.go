package empmos

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// WaterType identifies the kind of water a meter measures.
type WaterType int

const (
	WaterCold WaterType = 1
	WaterHot  WaterType = 2
)

// Abbr returns the short Russian label used on bills.
func (w WaterType) Abbr() string {
	switch w {
	case WaterCold:
		return "ХВС"
	case WaterHot:
		return "ГВС"
	default:
		return ""
	}
}

// Name returns the human readable Russian name.
func (w WaterType) Name() string {
	switch w {
	case WaterCold:
		return "холодная вода"
	case WaterHot:
		return "горячая вода"
	default:
		return ""
	}
}

// Indication is a single submitted meter reading.
type Indication struct {
	Period string
	Value  string
}

// Float parses the reading value.
func (i Indication) Float() (float64, bool) {
	return floatValue(i.Value)
}

// WaterCounters is the result of the water meters endpoint: the meters of a
// flat plus an archive of monthly consumption.
type WaterCounters Record

// Counters returns the meters of the flat.
func (w WaterCounters) Counters() []WaterCounter {
	recs := Record(w).Records("counters")
	out := make([]WaterCounter, 0, len(recs))
	for _, r := range recs {
		out = append(out, WaterCounter(r))
	}
	return out
}

// Archive returns the monthly consumption history.
func (w WaterCounters) Archive() []Record { return Record(w).Records("archive") }

// ByNum returns the meter with the given serial number.
func (w WaterCounters) ByNum(num string) (WaterCounter, bool) {
	for _, c := range w.Counters() {
		if c.Num() == num {
			return c, true
		}
	}
	return nil, false
}

// ByType returns the meters measuring the given water type.
func (w WaterCounters) ByType(t WaterType) []WaterCounter {
	var out []WaterCounter
	for _, c := range w.Counters() {
		if c.Type() == t {
			out = append(out, c)
		}
	}
	return out
}

// WaterCounter is a single water meter as returned by the service.
type WaterCounter Record

// ID returns the service-side counter id (not the serial number).
func (c WaterCounter) ID() int {
	id, _ := Record(c).Int("counterId")
	return id
}

// Num returns the serial number printed on the meter.
func (c WaterCounter) Num() string { return Record(c).String("num") }

// Type returns the water type of the meter.
func (c WaterCounter) Type() WaterType {
	t, _ := Record(c).Int("type")
	return WaterType(t)
}

// Indications returns the reading history in the order the service sent it.
func (c WaterCounter) Indications() []Indication {
	recs := Record(c).Records("indications")
	out := make([]Indication, 0, len(recs))
	for _, r := range recs {
		out = append(out, Indication{Period: r.String("period"), Value: r.String("indication")})
	}
	return out
}

// Checkup returns the date of the next meter verification. The service sends
// it as "2023-09-25+03:00"; only the date part is used.
func (c WaterCounter) Checkup() (time.Time, error) {
	raw := Record(c).String("checkup")
	if raw == "" {
		return time.Time{}, fmt.Errorf("counter %d has no checkup date", c.ID())
	}
	datePart, _, _ := strings.Cut(raw, "+")
	t, err := time.Parse(openapi_types.DateFormat, datePart)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse checkup %q: %w", raw, err)
	}
	return t, nil
}

// LastValue returns the most recent reading of the counter. Readings are
// ordered by their period string, which sorts chronologically for the date
// format the service uses. ok is false when nothing was submitted in the
// last three months.
func (c WaterCounter) LastValue() (value float64, ok bool, err error) {
	return LastValue(c.Indications())
}

// LastValue returns the value of the reading with the greatest period.
// Readings sharing a period keep the service's order, so the later one wins.
// An unparsable value of that reading is an error, not an absent value.
func LastValue(indications []Indication) (float64, bool, error) {
	if len(indications) == 0 {
		return 0, false, nil
	}
	sorted := append([]Indication(nil), indications...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Period < sorted[j].Period })
	last := sorted[len(sorted)-1]
	v, ok := last.Float()
	if !ok {
		return 0, false, fmt.Errorf("reading for %s: invalid value %q", last.Period, last.Value)
	}
	return v, true, nil
}

// CounterReading is one entry of a meter submission.
type CounterReading struct {
	CounterID  int                `json:"counter_id"`
	Period     openapi_types.Date `json:"period"`
	Indication string             `json:"indication"`
}

// NewCounterReading builds a submission entry. The value is written with two
// decimals and a comma separator, as the service expects.
func NewCounterReading(counterID int, period time.Time, value float64) CounterReading {
	return CounterReading{
		CounterID:  counterID,
		Period:     openapi_types.Date{Time: period},
		Indication: FormatIndication(value),
	}
}

// Reading builds a submission entry for this counter dated today.
func (c WaterCounter) Reading(value float64) CounterReading {
	return NewCounterReading(c.ID(), time.Now(), value)
}

// FormatIndication formats a meter value the way the service expects it: "21,50".
func FormatIndication(value float64) string {
	return strings.Replace(strconv.FormatFloat(value, 'f', 2, 64), ".", ",", 1)
}
