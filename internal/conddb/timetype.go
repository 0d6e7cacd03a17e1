package conddb

import "fmt"

// TimeType is the unit of IOV since values.
type TimeType string

const (
	RunNumber TimeType = "runnumber"
	Timestamp TimeType = "timestamp"
	LumiID    TimeType = "lumiid"
)

// ParseTimeType validates s as a time type.
func ParseTimeType(s string) (TimeType, error) {
	switch tt := TimeType(s); tt {
	case RunNumber, Timestamp, LumiID:
		return tt, nil
	default:
		return "", fmt.Errorf("unknown time type %q", s)
	}
}

// FirstSince returns the first valid since value of the time type.
func (tt TimeType) FirstSince() (uint64, error) {
	switch tt {
	case RunNumber, Timestamp, LumiID:
		return 1, nil
	default:
		return 0, fmt.Errorf("unknown time type %q", string(tt))
	}
}
