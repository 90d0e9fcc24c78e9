/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package metrics

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router returns the debug HTTP surface: a Prometheus scrape endpoint and
// a plain-text statistics dump matching the wire protocol's statistics
// response, for operators who want either one without a taskd client.
func Router(reg *prometheus.Registry, m *Metrics) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/debug/stats", func(w http.ResponseWriter, req *http.Request) {
		s := m.Snapshot()
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "uptime: %d\n", int64(s.Uptime.Seconds()))
		fmt.Fprintf(w, "transactions: %d\n", s.Transactions)
		fmt.Fprintf(w, "errors: %d\n", s.Errors)
		fmt.Fprintf(w, "idle: %d\n", int64(s.Idle.Seconds()))
		fmt.Fprintf(w, "total bytes in: %d\n", s.TotalBytesIn)
		fmt.Fprintf(w, "total bytes out: %d\n", s.TotalBytesOut)
		fmt.Fprintf(w, "average request bytes: %.2f\n", s.AverageRequestBytes)
		fmt.Fprintf(w, "average response bytes: %.2f\n", s.AverageResponseBytes)
		fmt.Fprintf(w, "average response time: %d\n", s.AverageResponseTime.Microseconds())
		fmt.Fprintf(w, "maximum response time: %d\n", s.MaximumResponseTime.Microseconds())
		fmt.Fprintf(w, "tps: %.4f\n", s.TransactionsPerSecond)
	}).Methods(http.MethodGet)
	return r
}
