/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics exposes a prometheus registry with the counters and
// gauges shared by the store server and protocol gateways.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Registry bundles the process-wide collectors this module registers.
type Registry struct {
	reg *prometheus.Registry

	SessionsConnected prometheus.Gauge
	NoticesDelivered  prometheus.Counter
	StoreUpdates      *prometheus.CounterVec
	ProtocolErrors    *prometheus.CounterVec
}

// New builds and registers the standard collector set.
func New() *Registry {
	r := &Registry{reg: prometheus.NewRegistry()}

	r.SessionsConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rvpf_sessions_connected",
		Help: "Number of currently connected store/SOM sessions.",
	})
	r.NoticesDelivered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rvpf_notices_delivered_total",
		Help: "Total point-value notices delivered to subscribed sessions.",
	})
	r.StoreUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rvpf_store_updates_total",
		Help: "Total point-value updates accepted by the store, by role.",
	}, []string{"role"})
	r.ProtocolErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rvpf_protocol_errors_total",
		Help: "Total protocol-level errors, by engine (dnp3, modbus).",
	}, []string{"engine"})

	r.reg.MustRegister(r.SessionsConnected, r.NoticesDelivered, r.StoreUpdates, r.ProtocolErrors)
	return r
}

// Serve blocks, exposing /metrics on addr. A call error is logged and
// fatal, matching the daemon's listen-or-die startup convention.
func (r *Registry) Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	log.Fatal(http.ListenAndServe(addr, mux))
}

// ListenAndServeAsync starts Serve in a goroutine unless addr is empty.
func ListenAndServeAsync(r *Registry, addr string) {
	if addr == "" {
		return
	}
	go r.Serve(addr)
	log.Infof("metrics: serving %s", fmt.Sprintf("http://%s/metrics", addr))
}
