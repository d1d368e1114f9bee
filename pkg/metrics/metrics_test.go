package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCartSyncMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCartSyncMetrics(reg)

	m.ObserveWrite("remote", "upsert", 20*time.Millisecond, nil)
	m.ObserveWrite("remote", "upsert", 10*time.Millisecond, errors.New("db down"))
	m.AddSuperseded("local", 3)
	m.ObserveLoad("remote", nil)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := counterValue(mfs, "cart_sync_writes_total", map[string]string{"store": "remote", "op": "upsert", "result": "ok"}); err != nil || got != 1 {
		t.Fatalf("expected one ok write, got %v (%v)", got, err)
	}
	if got, err := counterValue(mfs, "cart_sync_writes_total", map[string]string{"result": "error"}); err != nil || got != 1 {
		t.Fatalf("expected one failed write, got %v (%v)", got, err)
	}
	if got, err := counterValue(mfs, "cart_sync_superseded_total", map[string]string{"store": "local"}); err != nil || got != 3 {
		t.Fatalf("expected 3 superseded, got %v (%v)", got, err)
	}
	mf := findMetricFamily(mfs, "cart_sync_write_duration_seconds")
	if mf == nil || mf.GetMetric()[0].GetHistogram().GetSampleCount() != 2 {
		t.Fatalf("expected 2 duration samples")
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *CartSyncMetrics
	m.ObserveWrite("remote", "clear", time.Millisecond, nil)
	m.AddSuperseded("remote", 1)
	m.ObserveLoad("local", nil)

	var o *OutboxMetrics
	o.IncPublished("order.created")
	o.IncFailed("order.created")
	o.IncDead("order.created")

	NewCartSyncMetrics(nil).ObserveWrite("", "", 0, nil)
}

func TestOutboxMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.IncPublished("order.paid")
	m.IncPublished("order.paid")
	m.IncDead("order.created")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := counterValue(mfs, "outbox_published_total", map[string]string{"event_type": "order.paid"}); err != nil || got != 2 {
		t.Fatalf("expected 2 published, got %v (%v)", got, err)
	}
	if got, err := counterValue(mfs, "outbox_dead_total", map[string]string{"event_type": "order.created"}); err != nil || got != 1 {
		t.Fatalf("expected 1 dead, got %v (%v)", got, err)
	}
}

func counterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	for name, value := range want {
		found := false
		for _, p := range pairs {
			if p.GetName() == name && p.GetValue() == value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.Observe("GET", "/api/v1/cart", 200, 5*time.Millisecond)
	m.Observe("GET", "/api/v1/cart", 200, 7*time.Millisecond)
	m.Observe("POST", "", 400, time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := counterValue(mfs, "http_requests_total", map[string]string{"route": "/api/v1/cart", "status": "200"}); err != nil || got != 2 {
		t.Fatalf("expected two cart requests, got %v (%v)", got, err)
	}
	if got, err := counterValue(mfs, "http_requests_total", map[string]string{"route": "unknown", "status": "400"}); err != nil || got != 1 {
		t.Fatalf("expected unknown route label, got %v (%v)", got, err)
	}

	var nilMetrics *HTTPMetrics
	nilMetrics.Observe("GET", "/", 200, time.Millisecond)
}

func TestCronJobMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.IncSuccess("outbox-retention")
	m.IncSuccess("outbox-retention")
	m.IncFailure("order-expiry")
	m.ObserveDuration("order-expiry", 20*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := counterValue(mfs, "cron_job_runs_total", map[string]string{"job": "outbox-retention", "outcome": "success"}); err != nil || got != 2 {
		t.Fatalf("expected two successes, got %v (%v)", got, err)
	}
	if got, err := counterValue(mfs, "cron_job_runs_total", map[string]string{"job": "order-expiry", "outcome": "failure"}); err != nil || got != 1 {
		t.Fatalf("expected one failure, got %v (%v)", got, err)
	}

	var nilMetrics *CronJobMetrics
	nilMetrics.IncSuccess("x")
	nilMetrics.ObserveDuration("x", time.Second)
}
