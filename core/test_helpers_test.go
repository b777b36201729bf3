package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

var (
	testOwner = MustParseAddress("0x00000000000000000000000000000000000000a1")
	testAlice = MustParseAddress("0x00000000000000000000000000000000000000b2")
	testBob   = MustParseAddress("0x00000000000000000000000000000000000000c3")
)

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	svc, err := Setup(Config{Owner: testOwner.Hex()}, opts...)
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	return svc
}

func fixedClock() func() time.Time {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return now }
}

func mustBalance(t *testing.T, svc *Service, addr Address) Amount {
	t.Helper()
	balance, err := svc.BalanceOf(context.Background(), addr)
	if err != nil {
		t.Fatalf("balance of %s: %v", addr.Hex(), err)
	}
	return balance
}

func mustSupply(t *testing.T, svc *Service) Amount {
	t.Helper()
	supply, err := svc.TotalSupply(context.Background())
	if err != nil {
		t.Fatalf("total supply: %v", err)
	}
	return supply
}

func assertAmount(t *testing.T, label string, got Amount, want uint64) {
	t.Helper()
	if !got.Equal(NewAmount(want)) {
		t.Fatalf("expected %s=%d, got %s", label, want, got)
	}
}

type recordingNotifier struct {
	mu       sync.Mutex
	requests []WithdrawalRequest
	err      error
}

func (n *recordingNotifier) NotifyRelease(_ context.Context, req WithdrawalRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests = append(n.requests, req)
	return n.err
}

func (n *recordingNotifier) snapshot() []WithdrawalRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]WithdrawalRequest, len(n.requests))
	copy(out, n.requests)
	return out
}

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
