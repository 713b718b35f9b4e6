package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"kvflow/client"
	"kvflow/logging"
)

type (
	liveness struct {
		Up bool
	}
	readiness struct {
		Up                        bool
		atLeastOneActorRegistered bool
		numNeededReady            int
	}
)

var (
	l     *liveness
	r     *readiness
	mutex sync.Mutex
	lp    *logging.LogProvider
)

func init() {

	l = &liveness{true}
	r = &readiness{false, false, 0}
	lp = logging.GetLogProviderInstance(client.ID())

}

func newRouter() *mux.Router {

	router := mux.NewRouter()
	router.HandleFunc("/liveness", livenessHandler)
	router.HandleFunc("/readiness", readinessHandler)
	router.HandleFunc("/status", statusHandler)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return router

}

// Serve starts the api server in the background. The returned server can be used to shut it down.
func Serve(port int) *http.Server {

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      newRouter(),
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	go func() {
		lp.LogApiEvent(fmt.Sprintf("starting api server on port %d", port), log.InfoLevel)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lp.LogApiEvent(fmt.Sprintf("api server stopped unexpectedly: %v", err), log.ErrorLevel)
		}
	}()

	return server

}

// RaiseNotReady registers an actor that has yet to become ready. Readiness is reported only
// once every registered actor has called RaiseReady.
func RaiseNotReady() {

	mutex.Lock()
	defer mutex.Unlock()

	r.numNeededReady++
	r.atLeastOneActorRegistered = true
	r.Up = false
	lp.LogApiEvent(fmt.Sprintf("actor registered, number of actors yet to become ready: %d", r.numNeededReady), log.TraceLevel)

}

func RaiseReady() {

	mutex.Lock()
	defer mutex.Unlock()

	if r.numNeededReady > 0 {
		r.numNeededReady--
	}
	if r.numNeededReady == 0 && r.atLeastOneActorRegistered {
		r.Up = true
		lp.LogApiEvent("all registered actors ready", log.InfoLevel)
	}

}

func livenessHandler(w http.ResponseWriter, req *http.Request) {

	switch req.Method {
	case http.MethodGet:
		bytes, _ := json.Marshal(l)
		_, _ = w.Write(bytes)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}

}

func readinessHandler(w http.ResponseWriter, req *http.Request) {

	switch req.Method {
	case http.MethodGet:
		mutex.Lock()
		up := r.Up
		mutex.Unlock()
		if up {
			bytes, _ := json.Marshal(readiness{Up: true})
			_, _ = w.Write(bytes)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}

}

func statusHandler(w http.ResponseWriter, req *http.Request) {

	switch req.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		bytes, err := json.Marshal(assembleActorStatus())
		if err != nil {
			lp.LogApiEvent(fmt.Sprintf("unable to marshal status: %v", err), log.ErrorLevel)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(bytes)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}

}
