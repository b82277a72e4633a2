// Package status exposes the HA client's view of the world over HTTP: per
// service, the targets currently in rotation and the ones sitting in the
// failed set. Handy when diagnosing why traffic avoids a backend.
package status

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/softliumin/Jprotobuf-rpc-socket/loadbalance"
)

// StrategySource is the subset of the client the status page reads from.
type StrategySource interface {
	Services() []string
	Strategy(service string) loadbalance.LoadBalanceStrategy
}

// ServiceStatus is the JSON shape reported per service.
type ServiceStatus struct {
	Service       string   `json:"service"`
	Targets       []string `json:"targets"`
	FailedTargets []string `json:"failed_targets"`
}

// Handler returns the HTTP handler:
//
//	GET /status                → all services
//	GET /status/{service}      → one service, 404 if unknown
func Handler(src StrategySource) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/status", func(w http.ResponseWriter, req *http.Request) {
		services := src.Services()
		out := make([]ServiceStatus, 0, len(services))
		for _, service := range services {
			out = append(out, snapshot(src, service))
		}
		writeJSON(w, out)
	}).Methods(http.MethodGet)

	r.HandleFunc("/status/{service}", func(w http.ResponseWriter, req *http.Request) {
		service := mux.Vars(req)["service"]
		if src.Strategy(service) == nil {
			http.NotFound(w, req)
			return
		}
		writeJSON(w, snapshot(src, service))
	}).Methods(http.MethodGet)

	return r
}

func snapshot(src StrategySource, service string) ServiceStatus {
	strategy := src.Strategy(service)
	return ServiceStatus{
		Service:       service,
		Targets:       strategy.Targets(),
		FailedTargets: strategy.FailedTargets(),
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
