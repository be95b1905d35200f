package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCollectorExportsCounters(t *testing.T) {
	var m ServerMetrics
	m.Accept.EMFILE.Add(3)
	m.Accept.Recovered.Add(1)
	m.Close.ReadEOF.Add(7)
	m.Requests.Total.Add(42)

	reg := prometheus.NewRegistry()
	if err := reg.Register(NewCollector(&m)); err != nil {
		t.Fatalf("register: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	found := map[string]bool{}
	for _, mf := range families {
		found[mf.GetName()] = true
		switch mf.GetName() {
		case "katana_accept_recovered_total":
			if v := mf.GetMetric()[0].GetCounter().GetValue(); v != 1 {
				t.Errorf("recovered = %v", v)
			}
		case "katana_requests_total":
			if v := mf.GetMetric()[0].GetCounter().GetValue(); v != 42 {
				t.Errorf("requests = %v", v)
			}
		}
	}
	for _, name := range []string{
		"katana_accept_errors_total",
		"katana_accept_recovered_total",
		"katana_connection_closes_total",
		"katana_requests_total",
		"katana_request_errors_total",
	} {
		if !found[name] {
			t.Errorf("metric %s not exported", name)
		}
	}
}

func TestAcceptTotal(t *testing.T) {
	var c AcceptCounters
	c.EMFILE.Add(1)
	c.ENFILE.Add(2)
	c.Other.Add(3)
	c.Recovered.Add(9)
	if c.Total() != 6 {
		t.Fatalf("total = %d, want 6 (recoveries excluded)", c.Total())
	}
}
