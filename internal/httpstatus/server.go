// Package httpstatus implements the read-only external-connection boundary
// spec.md §4.5 names for the Observer: a UI or 2-D plotter polls status and
// pulls plot data over HTTP instead of in-process. Routing follows
// distribution-distribution's v2APIRouter shape (one gorilla/mux.Router,
// named routes, StrictSlash) generalized from a registry API to three
// read-only JSON endpoints.
package httpstatus

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jstraq/go-pxc/internal/runtime"
)

// readAllTimeout bounds how long a /plot request waits on the file writer,
// matching RunContext.emitRecord's 5s stalled-writer policy (spec §7).
const readAllTimeout = 5 * time.Second

// Server exposes a running sequence's StatusBoard, a caller-supplied metrics
// snapshot, and Read All plot data as JSON. It holds no state of its own
// beyond what's handed in, so it can be wired against a live RunContext or a
// test double equally.
type Server struct {
	board        *runtime.StatusBoard
	fileRequests chan<- *runtime.FileRequest
	snapshot     func() any
	logger       runtime.Logger
	router       *mux.Router
}

// NewServer builds a Server and registers its routes.
func NewServer(board *runtime.StatusBoard, fileRequests chan<- *runtime.FileRequest, snapshot func() any, logger runtime.Logger) *Server {
	s := &Server{board: board, fileRequests: fileRequests, snapshot: snapshot, logger: logger}

	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet).Name("status")
	router.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet).Name("metrics")
	router.HandleFunc("/plot", s.handlePlot).Methods(http.MethodGet).Name("plot")
	s.router = router

	return s
}

// ServeHTTP implements http.Handler so a Server can be passed directly to
// http.ListenAndServe or wrapped in further middleware.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && s.logger != nil {
		s.logger.Errorf("httpstatus: encode response: %v", err)
	}
}

type statusResponse struct {
	Lines  [4]string         `json:"lines"`
	Latest map[string]string `json:"latest"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, statusResponse{Lines: s.board.Lines(), Latest: s.board.Latest()})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.snapshot == nil {
		s.writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	s.writeJSON(w, http.StatusOK, s.snapshot())
}

type plotResponse struct {
	Series []runtime.XYSeries `json:"series"`
}

// handlePlot issues a Read All request against the live file writer and
// waits for its reply, rather than reading the data file itself, so the
// downsampling rule stays in one place (internal/runtime.FileWriter).
func (s *Server) handlePlot(w http.ResponseWriter, r *http.Request) {
	x := r.URL.Query().Get("x")
	ys := r.URL.Query()["y"]
	if x == "" || len(ys) == 0 {
		http.Error(w, "x and at least one y query parameter are required", http.StatusBadRequest)
		return
	}
	if s.fileRequests == nil {
		http.Error(w, "no run is active", http.StatusServiceUnavailable)
		return
	}

	reply := make(chan runtime.FileResult, 1)
	req := &runtime.FileRequest{Type: runtime.ReqReadAll, XColumn: x, YColumns: ys, Done: reply}

	select {
	case s.fileRequests <- req:
	case <-time.After(readAllTimeout):
		http.Error(w, "file writer did not accept the request in time", http.StatusGatewayTimeout)
		return
	}

	select {
	case res := <-reply:
		if res.Err != nil {
			http.Error(w, res.Err.Error(), http.StatusInternalServerError)
			return
		}
		s.writeJSON(w, http.StatusOK, plotResponse{Series: res.Series})
	case <-time.After(readAllTimeout):
		http.Error(w, "timed out waiting for Read All", http.StatusGatewayTimeout)
	}
}
