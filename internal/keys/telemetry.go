package keys

import (
	"time"

	"RedisVSCode-Webview/internal/connection"
)

type EventName string

const (
	EventKeysScanned             EventName = "TREE_VIEW_KEYS_SCANNED"
	EventKeysScannedWithFilter   EventName = "TREE_VIEW_KEYS_SCANNED_WITH_FILTER_ENABLED"
	EventKeysAdditionallyScanned EventName = "TREE_VIEW_KEYS_ADDITIONALLY_SCANNED"
)

const (
	MatchExactValueName = "EXACT_VALUE_NAME"
	MatchPattern        = "PATTERN"
)

// Outcome labels the end of a request
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeFailure   Outcome = "failure"
	OutcomeCancelled Outcome = "cancelled"
)

// ScanEventData is the payload of scan telemetry events
type ScanEventData struct {
	DatabaseID          string `mapstructure:"databaseId"`
	KeyType             string `mapstructure:"keyType,omitempty"`
	Match               string `mapstructure:"match,omitempty"`
	DatabaseSize        int64  `mapstructure:"databaseSize"`
	NumberOfKeysScanned int64  `mapstructure:"numberOfKeysScanned"`
	ScanCount           int    `mapstructure:"scanCount"`
	Source              string `mapstructure:"source,omitempty"`
}

type Event struct {
	Name EventName
	Data ScanEventData
}

// Telemetry receives outcome data of scans and deletes
type Telemetry interface {
	SendEvent(Event)
	ObserveScan(outcome Outcome, elapsed time.Duration)
	ObserveDelete(outcome Outcome)
}

// Notifier is the user facing, non-blocking notification channel
type Notifier interface {
	Info(msg string)
	Error(msg string)
}

type nopTelemetry struct{}

func (nopTelemetry) SendEvent(Event)                    {}
func (nopTelemetry) ObserveScan(Outcome, time.Duration) {}
func (nopTelemetry) ObserveDelete(Outcome)              {}

// NopTelemetry discards everything
var NopTelemetry Telemetry = nopTelemetry{}

// MatchType classifies a search pattern the way scan events report it
func MatchType(match string) string {
	if connection.IsGlobPattern(match) {
		return MatchPattern
	}
	return MatchExactValueName
}

func firstPageEvent(filter, search string) (EventName, string) {
	match := connection.DefaultMatch
	if filter == "" && search == "" {
		return EventKeysScanned, match
	}
	if search != "" && search != connection.DefaultMatch {
		match = MatchType(search)
	}
	return EventKeysScannedWithFilter, match
}
