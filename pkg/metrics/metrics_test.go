package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsExportsCountersAndHistograms(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveLogin(LoginInvalidCredentials)
	m.ObserveLogin(LoginInvalidCredentials)
	m.ObserveLogin(LoginSuccess)
	m.IncAccountLock()
	m.ObserveHero(HeroDowngraded)
	m.ObserveUpstream("gcs", "upload", errors.New("503"), 250*time.Millisecond)
	m.ObserveRequest("GET", "/api/public/media", 200, 10*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "folio_login_attempts_total", "result", LoginInvalidCredentials); err != nil {
		t.Fatalf("fetch logins: %v", err)
	} else if got != 2 {
		t.Fatalf("expected invalid_credentials=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "folio_hero_designations_total", "outcome", HeroDowngraded); err != nil {
		t.Fatalf("fetch hero: %v", err)
	} else if got != 1 {
		t.Fatalf("expected downgraded=1, got %f", got)
	}

	if mf := findMetricFamily(mfs, "folio_account_locks_total"); mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected one account lock")
	}

	if got, err := fetchHistogramSum(mfs, "folio_upstream_duration_seconds", "outcome", "error"); err != nil {
		t.Fatalf("fetch upstream: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected upstream sum > 0, got %f", got)
	}

	if _, err := fetchHistogramSum(mfs, "folio_http_request_duration_seconds", "status", "200"); err != nil {
		t.Fatalf("fetch requests: %v", err)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveLogin(LoginSuccess)
	m.IncAccountLock()
	m.ObserveHero(HeroSet)
	m.ObserveUpstream("smtp", "send", nil, time.Second)
	m.ObserveRequest("GET", "/", 200, time.Second)

	unregistered := New(nil)
	unregistered.ObserveLogin(LoginLocked)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
