package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type capturedCounter struct {
	name  string
	value int64
	tags  map[string]string
}

type capturedHistogram struct {
	name  string
	value float64
	tags  map[string]string
}

type captureMetricsRecorder struct {
	mu         sync.Mutex
	counters   []capturedCounter
	histograms []capturedHistogram
}

func (m *captureMetricsRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, capturedCounter{name: name, value: value, tags: cloneTags(tags)})
}

func (m *captureMetricsRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms = append(m.histograms, capturedHistogram{name: name, value: value, tags: cloneTags(tags)})
}

func (m *captureMetricsRecorder) hasCounter(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.counters {
		if item.name == name {
			return true
		}
	}
	return false
}

func (m *captureMetricsRecorder) counterWithStatus(name string, status string) (capturedCounter, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.counters {
		if item.name == name && item.tags["status"] == status {
			return item, true
		}
	}
	return capturedCounter{}, false
}

func (m *captureMetricsRecorder) hasHistogram(name string, status string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.histograms {
		if item.name == name && item.tags["status"] == status {
			return true
		}
	}
	return false
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu       *sync.Mutex
	records  *[]capturedLog
	defaults map[string]any
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records, defaults: map[string]any{}}
}

func (l *captureLogger) WithFields(fields map[string]any) Logger {
	merged := cloneFields(l.defaults)
	for key, value := range fields {
		merged[key] = value
	}
	return &captureLogger{mu: l.mu, records: l.records, defaults: merged}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) Logger {
	return &captureLogger{mu: l.mu, records: l.records, defaults: cloneFields(l.defaults)}
}

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := cloneFields(l.defaults)
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) snapshot() []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]capturedLog, len(*l.records))
	copy(out, *l.records)
	return out
}

func findLog(records []capturedLog, level string, msg string) (capturedLog, bool) {
	for _, record := range records {
		if record.level == level && record.msg == msg {
			return record, true
		}
	}
	return capturedLog{}, false
}

func TestServiceObservability_MintSuccess(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	svc := newTestService(t,
		WithMetricsRecorder(metrics),
		WithLoggerProvider(stubLoggerProvider{logger: logger}),
		WithLogger(logger),
	)

	if _, err := svc.Mint(context.Background(), MintRequest{Caller: testOwner, Amount: NewAmount(25)}); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, ok := metrics.counterWithStatus("ledger.mint.total", "success"); !ok {
		t.Fatalf("expected ledger.mint.total success counter")
	}
	if !metrics.hasHistogram("ledger.mint.duration_ms", "success") {
		t.Fatalf("expected ledger.mint.duration_ms histogram")
	}
	record, ok := findLog(logger.snapshot(), "info", "mint succeeded")
	if !ok {
		t.Fatalf("expected mint succeeded log")
	}
	if record.fields["amount"] != "25" || record.fields["caller"] != testOwner.Hex() {
		t.Fatalf("unexpected mint log fields: %#v", record.fields)
	}
	if record.fields["ledger_id"] != "wldoge" {
		t.Fatalf("expected ledger_id field, got %#v", record.fields["ledger_id"])
	}
}

func TestServiceObservability_FailureCarriesErrorCode(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	svc := newTestService(t,
		WithMetricsRecorder(metrics),
		WithLoggerProvider(stubLoggerProvider{logger: logger}),
		WithLogger(logger),
	)

	_, err := svc.BridgeUnwrap(context.Background(), BridgeUnwrapRequest{
		Caller:          testAlice,
		ExternalAddress: "dAlice",
		Amount:          NewAmount(1),
	})
	if err == nil {
		t.Fatalf("expected unwrap failure")
	}
	counter, ok := metrics.counterWithStatus("ledger.bridge_unwrap.total", "failure")
	if !ok {
		t.Fatalf("expected bridge_unwrap failure counter")
	}
	if counter.tags["error_code"] != LedgerErrorMinimumNotMet {
		t.Fatalf("expected minimum error code tag, got %#v", counter.tags)
	}
	record, ok := findLog(logger.snapshot(), "error", "bridge_unwrap failed")
	if !ok {
		t.Fatalf("expected bridge_unwrap failed log")
	}
	if record.fields["error_code"] != LedgerErrorMinimumNotMet {
		t.Fatalf("expected error_code field, got %#v", record.fields["error_code"])
	}
	if record.fields["error_category"] == nil {
		t.Fatalf("expected error_category field")
	}
}

func TestObserveOperation_NormalizesName(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	svc := newTestService(t, WithMetricsRecorder(metrics))
	svc.observeOperation(context.Background(), time.Now().UTC(), " Bridge-Wrap ", errors.New("boom"), nil)
	if _, ok := metrics.counterWithStatus("ledger.bridge_wrap.total", "failure"); !ok {
		t.Fatalf("expected normalized operation counter")
	}
}
