package metrics

import (
	"time"

	"github.com/mitchellh/mapstructure"

	"RedisVSCode-Webview/internal/keys"
	"RedisVSCode-Webview/internal/logger"
)

// Sink receives telemetry events flattened to the host's map shape
type Sink func(event keys.EventName, data map[string]any)

// Telemetry implements keys.Telemetry on top of Metrics and forwards scan
// events to an optional sink.
type Telemetry struct {
	m    *Metrics
	sink Sink
}

func NewTelemetry(m *Metrics, sink Sink) *Telemetry {
	return &Telemetry{m: m, sink: sink}
}

func (t *Telemetry) SendEvent(e keys.Event) {
	t.m.EventsTotal.WithLabelValues(string(e.Name)).Inc()
	t.m.KeysScannedTotal.Add(float64(e.Data.NumberOfKeysScanned))
	if t.sink == nil {
		return
	}
	data, err := EventData(e.Data)
	if err != nil {
		logger.Error(err, "转换遥测数据失败：event=%s", e.Name)
		return
	}
	t.sink(e.Name, data)
}

func (t *Telemetry) ObserveScan(outcome keys.Outcome, elapsed time.Duration) {
	t.m.ScanRequestsTotal.WithLabelValues(string(outcome)).Inc()
	t.m.ScanDuration.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())
}

func (t *Telemetry) ObserveDelete(outcome keys.Outcome) {
	t.m.DeleteRequestsTotal.WithLabelValues(string(outcome)).Inc()
}

// EventData flattens scan event data using its mapstructure tags
func EventData(d keys.ScanEventData) (map[string]any, error) {
	out := map[string]any{}
	if err := mapstructure.Decode(d, &out); err != nil {
		return nil, err
	}
	return out, nil
}
