// Package metrics models the raw payload shapes returned by the metrics
// provider. A payload is resolved once into a tagged union (scalar, time
// series, or bag of numbers) so downstream consumers never re-inspect the
// dynamic shape.
package metrics

import (
	"encoding/json"
	"regexp"
	"sort"
)

// Metric names used by the health score and comparison defaults. These follow
// the provider's naming (OpenDigger-style statistical metrics).
const (
	MetricOpenRank     = "openrank"
	MetricActivity     = "activity"
	MetricStars        = "stars"
	MetricForks        = "forks"
	MetricContributors = "contributors"
	MetricParticipants = "participants"
	MetricCommits      = "commits"
	MetricAttention    = "attention"
	MetricIssuesOpened = "issues_opened"
	MetricIssuesClosed = "issues_closed"
	MetricChangeReqs   = "change_requests"
)

// SupportedMetrics lists every metric name the server accepts, in the order
// they are reported to clients.
var SupportedMetrics = []string{
	MetricOpenRank,
	MetricActivity,
	MetricStars,
	MetricForks,
	MetricContributors,
	MetricParticipants,
	MetricCommits,
	MetricAttention,
	MetricIssuesOpened,
	MetricIssuesClosed,
	MetricChangeReqs,
}

// IsSupportedMetric reports whether name is a known metric.
func IsSupportedMetric(name string) bool {
	for _, m := range SupportedMetrics {
		if m == name {
			return true
		}
	}
	return false
}

// Kind discriminates the payload variants.
type Kind int

const (
	// KindEmpty covers nil, non-numeric and otherwise unusable payloads.
	KindEmpty Kind = iota
	// KindScalar is a single number.
	KindScalar
	// KindSeries is a date-keyed map forming an ordered time series.
	KindSeries
	// KindBag is a map with numeric values but no date-like keys.
	KindBag
)

// Point is one observation of a time series. Date is the original YYYY-MM or
// YYYY-MM-DD key; lexicographic order of these keys is chronological.
type Point struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Payload is the resolved form of a raw metric value.
type Payload struct {
	kind   Kind
	scalar float64
	points []Point
	bag    []float64
}

var dateKeyPattern = regexp.MustCompile(`^\d{4}-\d{2}(-\d{2})?$`)

// IsDateKey reports whether key looks like a YYYY-MM or YYYY-MM-DD date.
func IsDateKey(key string) bool {
	return dateKeyPattern.MatchString(key)
}

// Resolve inspects a raw decoded JSON value and classifies it. Maps with at
// least one numeric date-like key become a series (non-date keys are ignored);
// maps with only non-date numeric fields become a bag; numbers become scalars;
// everything else resolves to the empty payload.
func Resolve(raw interface{}) Payload {
	if raw == nil {
		return Payload{}
	}

	if v, ok := toNumber(raw); ok {
		return Payload{kind: KindScalar, scalar: v}
	}

	m, ok := raw.(map[string]interface{})
	if !ok {
		return Payload{}
	}

	points := make([]Point, 0, len(m))
	bag := make([]float64, 0, len(m))
	bagKeys := make([]string, 0, len(m))
	for key, value := range m {
		v, numeric := toNumber(value)
		if !numeric {
			continue
		}
		if IsDateKey(key) {
			points = append(points, Point{Date: key, Value: v})
		} else {
			bag = append(bag, v)
			bagKeys = append(bagKeys, key)
		}
	}

	if len(points) > 0 {
		sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
		return Payload{kind: KindSeries, points: points}
	}
	if len(bag) > 0 {
		// Sort by key for deterministic iteration over the unordered map.
		sort.Sort(&bagByKey{keys: bagKeys, values: bag})
		return Payload{kind: KindBag, bag: bag}
	}
	return Payload{}
}

// Kind returns the payload variant.
func (p Payload) Kind() Kind { return p.kind }

// Scalar returns the scalar value; zero unless Kind is KindScalar.
func (p Payload) Scalar() float64 { return p.scalar }

// Points returns the chronologically ordered series points. The slice is
// owned by the payload and must not be mutated.
func (p Payload) Points() []Point { return p.points }

// LatestValue extracts the single representative value of a payload: the
// scalar itself, the value at the last date key of a series, the maximum of a
// bag, and 0 for the empty payload. Comparison analysis, health scoring and
// trend bootstrapping all rely on this one rule.
func (p Payload) LatestValue() float64 {
	switch p.kind {
	case KindScalar:
		return p.scalar
	case KindSeries:
		return p.points[len(p.points)-1].Value
	case KindBag:
		maxVal := p.bag[0]
		for _, v := range p.bag[1:] {
			if v > maxVal {
				maxVal = v
			}
		}
		return maxVal
	default:
		return 0
	}
}

// ExtractLatestValue resolves raw and returns its latest value.
func ExtractLatestValue(raw interface{}) float64 {
	return Resolve(raw).LatestValue()
}

// toNumber converts the numeric types a decoded payload may carry.
func toNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// bagByKey sorts bag values by their originating key.
type bagByKey struct {
	keys   []string
	values []float64
}

func (b *bagByKey) Len() int           { return len(b.keys) }
func (b *bagByKey) Less(i, j int) bool { return b.keys[i] < b.keys[j] }
func (b *bagByKey) Swap(i, j int) {
	b.keys[i], b.keys[j] = b.keys[j], b.keys[i]
	b.values[i], b.values[j] = b.values[j], b.values[i]
}
