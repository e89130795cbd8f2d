package types

import (
	"encoding/json"
	"math"
	"time"
)

// Recording describes one recording file found during a scan
type Recording struct {
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Size     int64    `json:"size"`
	Modified UnixTime `json:"modified"`
}

// Listing is the body returned for a successful list request
type Listing struct {
	Directory  string      `json:"directory"`
	Recordings []Recording `json:"recordings"`
	Count      int         `json:"count"`
}

// ScanRecord is a summary of one enumeration, kept in the scan history
type ScanRecord struct {
	ID         string    `json:"id"`
	Directory  string    `json:"directory"`
	Count      int       `json:"count"`
	TotalBytes int64     `json:"total_bytes"`
	DurationMS int64     `json:"duration_ms"`
	ScannedAt  time.Time `json:"scanned_at"`
	RequestID  string    `json:"request_id,omitempty"`
}

// UnixTime serializes as fractional seconds since the Unix epoch
type UnixTime time.Time

func (t UnixTime) Time() time.Time {
	return time.Time(t)
}

func (t UnixTime) MarshalJSON() ([]byte, error) {
	tt := time.Time(t)
	secs := float64(tt.UnixNano()) / float64(time.Second)
	return json.Marshal(secs)
}

func (t *UnixTime) UnmarshalJSON(data []byte) error {
	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return err
	}
	whole, frac := math.Modf(secs)
	*t = UnixTime(time.Unix(int64(whole), int64(frac*float64(time.Second))))
	return nil
}
