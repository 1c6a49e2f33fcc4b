// Package prometheus bridges the engine's internal counters into a
// prometheus.Collector so a daemon can expose them on /metrics.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	vaultauth "github.com/vaultauth/vaultauth"
)

type counterDef struct {
	id   vaultauth.MetricID
	name string
	help string
}

var counterDefs = []counterDef{
	{vaultauth.MetricRegisterSuccess, "vaultauth_register_success_total", "Accounts created."},
	{vaultauth.MetricRegisterDuplicate, "vaultauth_register_duplicate_total", "Registrations rejected for an existing email."},
	{vaultauth.MetricLoginSuccess, "vaultauth_login_success_total", "Successful logins."},
	{vaultauth.MetricLoginFailure, "vaultauth_login_failure_total", "Failed logins."},
	{vaultauth.MetricVerifySuccess, "vaultauth_verify_success_total", "Access tokens verified."},
	{vaultauth.MetricVerifyFailure, "vaultauth_verify_failure_total", "Access tokens rejected for signature or payload problems."},
	{vaultauth.MetricVerifyRevoked, "vaultauth_verify_revoked_total", "Access tokens rejected from the denylist."},
	{vaultauth.MetricRefreshSuccess, "vaultauth_refresh_success_total", "Refresh rotations completed."},
	{vaultauth.MetricRefreshFailure, "vaultauth_refresh_failure_total", "Refresh attempts failed."},
	{vaultauth.MetricRefreshMismatch, "vaultauth_refresh_mismatch_total", "Refresh attempts with a non-current token."},
	{vaultauth.MetricLogout, "vaultauth_logout_total", "Sessions revoked by logout."},
}

type metricsSource interface {
	MetricsSnapshot() vaultauth.MetricsSnapshot
}

// Collector implements prometheus.Collector over an engine's counters.
type Collector struct {
	source metricsSource
	descs  map[vaultauth.MetricID]*prometheus.Desc
}

// NewCollector creates a Collector reading from engine.
func NewCollector(engine *vaultauth.Engine) *Collector {
	return NewCollectorFromSource(engine)
}

// NewCollectorFromSource creates a Collector from any snapshot source.
func NewCollectorFromSource(source metricsSource) *Collector {
	descs := make(map[vaultauth.MetricID]*prometheus.Desc, len(counterDefs))
	for _, def := range counterDefs {
		descs[def.id] = prometheus.NewDesc(def.name, def.help, nil, nil)
	}
	return &Collector{source: source, descs: descs}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, desc := range c.descs {
		ch <- desc
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c == nil || c.source == nil {
		return
	}
	snapshot := c.source.MetricsSnapshot()
	for _, def := range counterDefs {
		ch <- prometheus.MustNewConstMetric(
			c.descs[def.id],
			prometheus.CounterValue,
			float64(snapshot.Counters[def.id]),
		)
	}
}
