package monitoring

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bolt-observer/graphite-golang"
	"github.com/golang/glog"
)

// PREFIX is the prefix for all metrics.
const PREFIX = "wallet.pushagent"

// Metrics reports job and reply outcomes to graphite.
type Metrics struct {
	graphite *graphite.Graphite
	env      string
}

// NewNopMetrics constructs a Metrics that does nothing.
func NewNopMetrics() *Metrics {
	g := graphite.NewGraphiteNop("", 2003)
	g.DisableLog = true
	return &Metrics{graphite: g}
}

// NewMetrics constructs a new Metrics instance.
func NewMetrics(env, graphiteHost, graphitePort string) *Metrics {
	port, err := strconv.Atoi(graphitePort)
	if err != nil {
		port = 0
	}

	if graphiteHost == "" {
		g := graphite.NewGraphiteNop(graphiteHost, port)
		g.DisableLog = true
		return &Metrics{graphite: g, env: env}
	}

	g, err := graphite.NewGraphiteUDP(graphiteHost, port)
	if err != nil || g.Connect() != nil {
		g = graphite.NewGraphiteNop(graphiteHost, port)
		g.DisableLog = false
	}

	return &Metrics{graphite: g, env: env}
}

// JobTimer - times one job execution, ala defer m.JobTimer("swap_updated")()
func (m *Metrics) JobTimer(jobType string) func() {
	start := time.Now()
	return func() {
		duration := time.Since(start)
		glog.V(2).Infof("Job %s took %d milliseconds", jobType, duration.Milliseconds())
		m.graphite.SendMetrics([]graphite.Metric{
			graphite.NewMetricWithTags(fmt.Sprintf("%s.job.%s.duration", PREFIX, jobType), fmt.Sprintf("%d", duration.Milliseconds()), time.Now().Unix(), m.tags()),
			graphite.NewMetricWithTags(fmt.Sprintf("%s.job.%s.invocation", PREFIX, jobType), "1", time.Now().Unix(), m.tags()),
		})
	}
}

// Count - is used to count an outcome, e.g. Count("reply", "failure").
func (m *Metrics) Count(name, val string) {
	m.graphite.SendMetrics([]graphite.Metric{
		graphite.NewMetricWithTags(fmt.Sprintf("%s.%s.%s", PREFIX, name, val), "1", time.Now().Unix(), m.tags()),
	})
}

func (m *Metrics) tags() map[string]string {
	return map[string]string{"env": m.env}
}
