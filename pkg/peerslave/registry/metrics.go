package registry

import (
	"bytes"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Snapshot renders the registry's currently advertised resource gauges
// (memavail, cpuavail, peer count) as Prometheus text-exposition format
// via github.com/prometheus/common/expfmt.
func (r *Registry) Snapshot() (string, error) {
	host := r.Host()

	families := []*dto.MetricFamily{
		gaugeFamily("peerslave_mem_avail_bytes", "advertised available memory in bytes", float64(host.MemAvail)),
		gaugeFamily("peerslave_cpu_avail_percent", "advertised available cpu percentage", float64(host.CPUAvail)),
		gaugeFamily("peerslave_peer_count", "number of peers currently in the local table", float64(r.PeerCount())),
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, f := range families {
		if err := enc.Encode(f); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func gaugeFamily(name, help string, value float64) *dto.MetricFamily {
	gaugeType := dto.MetricType_GAUGE
	return &dto.MetricFamily{
		Name: strPtr(name),
		Help: strPtr(help),
		Type: &gaugeType,
		Metric: []*dto.Metric{
			{Gauge: &dto.Gauge{Value: &value}},
		},
	}
}

func strPtr(s string) *string { return &s }
