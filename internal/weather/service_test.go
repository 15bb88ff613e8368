package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/i474232898/weather-quota/internal/identity"
	"github.com/i474232898/weather-quota/internal/ledger"
	"github.com/i474232898/weather-quota/internal/quota"
)

// fakeFetcher counts calls and returns a canned forecast or error.
type fakeFetcher struct {
	mu       sync.Mutex
	calls    int
	places   []string
	forecast func(place string) Forecast
	err      error
	panicMsg string
}

func (f *fakeFetcher) Fetch(ctx context.Context, place string) (Forecast, error) {
	f.mu.Lock()
	f.calls++
	f.places = append(f.places, place)
	f.mu.Unlock()

	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.err != nil {
		return Forecast{}, f.err
	}
	if place == "" {
		return Forecast{}, ErrInvalidInput
	}
	return f.forecast(place), nil
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeRecorder captures metrics in memory for assertion.
type fakeRecorder struct {
	mu       sync.Mutex
	queries  map[string]int
	fetches  int
	lastUsed int64
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{queries: make(map[string]int)}
}

func (r *fakeRecorder) RecordQuery(outcome, advisory string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries[outcome+"/"+advisory]++
}

func (r *fakeRecorder) ObserveFetch(outcome string, seconds float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches++
}

func (r *fakeRecorder) UpdateUsage(total int64, usage float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastUsed = total
}

// osloDay builds 24 hourly points with the max at hour 14 and the min at hour 3.
func osloDay(place string) Forecast {
	series := make(ForecastSeries, 0, 24)
	for h := 0; h < 24; h++ {
		temp := 10.0
		switch h {
		case 14:
			temp = 21.5
		case 3:
			temp = -2.25
		}
		series = append(series, ForecastPoint{
			Time:         fmt.Sprintf("2024-05-01 %02d:00", h),
			TemperatureC: temp,
			Place:        place,
		})
	}
	return Forecast{
		Location: LocationInfo{Name: "Oslo", Region: "Oslo", Country: "Norway"},
		Series:   series,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func newTestService(l Ledger, m quota.Monitor, f Fetcher, r Recorder) *Service {
	return NewService(l, m, f, WithLogger(discardLogger()), WithRecorder(r))
}

func TestService_HandleSuccess(t *testing.T) {
	led := ledger.NewMemory()
	fetcher := &fakeFetcher{forecast: osloDay}
	rec := newFakeRecorder()
	svc := newTestService(led, quota.NewMonitor(), fetcher, rec)

	res := svc.Handle(context.Background(), strPtr("Oslo"), identity.Metadata{identity.RemoteAddr: "10.0.0.1"})

	if res.Outcome != OutcomeOK {
		t.Fatalf("expected ok outcome, got %q", res.Outcome)
	}
	if len(res.Series) != 24 {
		t.Fatalf("expected 24 points, got %d", len(res.Series))
	}
	if res.Location == nil || res.Location.Name != "Oslo" {
		t.Fatalf("unexpected location: %+v", res.Location)
	}
	if res.Extremes == nil {
		t.Fatal("expected extremes")
	}
	if res.Extremes.MaxTime != "2024-05-01 14:00" || res.Extremes.Max != 21.5 {
		t.Errorf("unexpected max: %+v", res.Extremes)
	}
	if res.Extremes.MinTime != "2024-05-01 03:00" || res.Extremes.Min != -2.25 {
		t.Errorf("unexpected min: %+v", res.Extremes)
	}
	for i, p := range res.Series {
		if p.Place != "Oslo" {
			t.Fatalf("point %d place = %q, want literal input", i, p.Place)
		}
	}
	if res.Advisory.Level != quota.LevelOK {
		t.Errorf("expected ok advisory, got %q", res.Advisory.Level)
	}
	if led.Count("10.0.0.1") != 1 {
		t.Errorf("expected one recorded access, got %d", led.Count("10.0.0.1"))
	}
	if rec.queries["ok/ok"] != 1 || rec.fetches != 1 || rec.lastUsed != 1 {
		t.Errorf("unexpected metrics: %+v fetches=%d used=%d", rec.queries, rec.fetches, rec.lastUsed)
	}
}

// The place label is the raw input, even when the provider resolves it differently.
func TestService_PlaceLabelIsRawInput(t *testing.T) {
	fetcher := &fakeFetcher{forecast: func(place string) Forecast {
		f := osloDay(place)
		f.Location.Name = "New York"
		return f
	}}
	svc := newTestService(ledger.NewMemory(), quota.NewMonitor(), fetcher, newFakeRecorder())

	res := svc.Handle(context.Background(), strPtr("nyc "), nil)
	if res.Location.Name != "New York" {
		t.Errorf("expected resolved name, got %q", res.Location.Name)
	}
	if res.Series[0].Place != "nyc " {
		t.Errorf("expected raw input label %q, got %q", "nyc ", res.Series[0].Place)
	}
}

func TestService_HandleInvalidInput(t *testing.T) {
	for name, place := range map[string]*string{"nil": nil, "empty": strPtr("")} {
		t.Run(name, func(t *testing.T) {
			led := ledger.NewMemory()
			fetcher := &fakeFetcher{forecast: osloDay}
			svc := newTestService(led, quota.NewMonitor(), fetcher, newFakeRecorder())

			res := svc.Handle(context.Background(), place, identity.Metadata{identity.ForwardedFor: "1.2.3.4"})

			if !res.Empty() || res.Series == nil {
				t.Fatalf("expected a non-nil empty series, got %+v", res.Series)
			}
			if res.Location != nil || res.Extremes != nil {
				t.Errorf("expected absent location and extremes")
			}
			if res.Outcome != OutcomeInvalidInput {
				t.Errorf("expected invalid input outcome, got %q", res.Outcome)
			}
			if led.Total() != 1 || led.Count("1.2.3.4") != 1 {
				t.Errorf("expected exactly one recorded access, total=%d", led.Total())
			}
		})
	}
}

func TestService_HandleBlockedSkipsFetcher(t *testing.T) {
	led := ledger.NewMemory()
	monitor := quota.Monitor{HardLimit: 3, WarnFraction: 0.5}
	for i := 0; i < 3; i++ {
		led.Record("earlier")
	}

	fetcher := &fakeFetcher{forecast: osloDay}
	rec := newFakeRecorder()
	svc := newTestService(led, monitor, fetcher, rec)

	res := svc.Handle(context.Background(), strPtr("Paris"), identity.Metadata{identity.RemoteAddr: "10.0.0.9"})

	if fetcher.Calls() != 0 {
		t.Fatalf("fetcher must not be invoked when blocked, got %d calls", fetcher.Calls())
	}
	if !res.Empty() || res.Location != nil || res.Extremes != nil {
		t.Errorf("expected empty result, got %+v", res)
	}
	if res.Advisory.Level != quota.LevelBlocked || res.Advisory.Notice != quota.NoticeBlocked {
		t.Errorf("unexpected advisory: %+v", res.Advisory)
	}
	if res.Outcome != OutcomeQuotaExceeded {
		t.Errorf("expected quota exceeded outcome, got %q", res.Outcome)
	}
	if led.Count("10.0.0.9") != 1 {
		t.Errorf("refused query must still be counted")
	}
	if rec.fetches != 0 || rec.queries["quota_exceeded/blocked"] != 1 {
		t.Errorf("unexpected metrics: %+v fetches=%d", rec.queries, rec.fetches)
	}
}

func TestService_HandleWarnStillFetches(t *testing.T) {
	led := ledger.NewMemory()
	monitor := quota.Monitor{HardLimit: 2, WarnFraction: 0.5}
	led.Record("earlier")

	fetcher := &fakeFetcher{forecast: osloDay}
	svc := newTestService(led, monitor, fetcher, newFakeRecorder())

	// total becomes 2 == HardLimit, which is still only a warning
	res := svc.Handle(context.Background(), strPtr("Oslo"), nil)

	if fetcher.Calls() != 1 {
		t.Fatalf("expected one fetch, got %d", fetcher.Calls())
	}
	if res.Advisory.Level != quota.LevelWarn || res.Advisory.Notice != quota.NoticeWarn {
		t.Errorf("unexpected advisory: %+v", res.Advisory)
	}
	if res.Empty() {
		t.Errorf("expected a populated series under warn")
	}
}

func TestService_HandleFailuresResolveToEmpty(t *testing.T) {
	tests := []struct {
		name    string
		fetcher *fakeFetcher
		outcome Outcome
	}{
		{"upstream status", &fakeFetcher{err: &UpstreamHTTPError{StatusCode: 401}}, OutcomeUpstream},
		{"upstream timeout", &fakeFetcher{err: &UpstreamHTTPError{Err: context.DeadlineExceeded}}, OutcomeUpstream},
		{"malformed", &fakeFetcher{err: fmt.Errorf("%w: missing hour", ErrMalformedResponse)}, OutcomeMalformed},
		{"unexpected", &fakeFetcher{err: errors.New("boom")}, OutcomeUnexpected},
		{"panic", &fakeFetcher{panicMsg: "nil map"}, OutcomeUnexpected},
		{"empty series", &fakeFetcher{forecast: func(string) Forecast { return Forecast{} }}, OutcomeMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(ledger.NewMemory(), quota.NewMonitor(), tt.fetcher, newFakeRecorder())

			res := svc.Handle(context.Background(), strPtr("Oslo"), nil)

			if res.Outcome != tt.outcome {
				t.Errorf("expected outcome %q, got %q", tt.outcome, res.Outcome)
			}
			if !res.Empty() || res.Series == nil || res.Location != nil || res.Extremes != nil {
				t.Errorf("expected well-formed empty result, got %+v", res)
			}
			if res.Advisory.Level != quota.LevelOK {
				t.Errorf("expected computed advisory to be kept, got %q", res.Advisory.Level)
			}
		})
	}
}

func TestService_ConcurrentHandleCountsEveryQuery(t *testing.T) {
	led := ledger.NewMemory()
	svc := newTestService(led, quota.NewMonitor(), &fakeFetcher{forecast: osloDay}, newFakeRecorder())

	var wg sync.WaitGroup
	wg.Add(50)
	for i := 0; i < 50; i++ {
		i := i
		go func() {
			defer wg.Done()
			md := identity.Metadata{identity.RemoteAddr: fmt.Sprintf("10.0.0.%d", i%5)}
			svc.Handle(context.Background(), strPtr("Oslo"), md)
		}()
	}
	wg.Wait()

	if led.Total() != 50 {
		t.Fatalf("expected 50 recorded accesses, got %d", led.Total())
	}

	u := svc.Usage()
	if u.Total != 50 || u.Clients != 5 || u.HardLimit != quota.DefaultHardLimit {
		t.Errorf("unexpected usage: %+v", u)
	}
}

func TestComputeExtremes(t *testing.T) {
	if ComputeExtremes(nil) != nil {
		t.Fatal("expected nil extremes for empty series")
	}

	series := ForecastSeries{
		{Time: "00:00", TemperatureC: 5},
		{Time: "01:00", TemperatureC: 7},
		{Time: "02:00", TemperatureC: 1},
		{Time: "03:00", TemperatureC: 7},
		{Time: "04:00", TemperatureC: 1},
	}
	ext := ComputeExtremes(series)
	if ext.MaxTime != "01:00" || ext.Max != 7 {
		t.Errorf("expected first max occurrence, got %+v", ext)
	}
	if ext.MinTime != "02:00" || ext.Min != 1 {
		t.Errorf("expected first min occurrence, got %+v", ext)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Outcome
	}{
		{nil, OutcomeOK},
		{ErrInvalidInput, OutcomeInvalidInput},
		{fmt.Errorf("wrap: %w", ErrQuotaExceeded), OutcomeQuotaExceeded},
		{fmt.Errorf("wrap: %w", ErrMalformedResponse), OutcomeMalformed},
		{fmt.Errorf("wrap: %w", &UpstreamHTTPError{StatusCode: 500}), OutcomeUpstream},
		{errors.New("other"), OutcomeUnexpected},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
