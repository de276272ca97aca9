package httpstatus

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jstraq/go-pxc/internal/runtime"
)

var errBoom = errors.New("boom")

func TestHandleStatusReturnsBoardContents(t *testing.T) {
	board := runtime.NewStatusBoard()
	board.Publish([4]string{"Running", "Step 2", "", ""})
	board.PublishLatest(map[string]string{"Voltage (dmm) [V]": "1.5"})

	srv := NewServer(board, nil, nil, nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var got statusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Lines[0] != "Running" || got.Latest["Voltage (dmm) [V]"] != "1.5" {
		t.Errorf("got %+v", got)
	}
}

func TestHandleMetricsUsesSnapshotFunc(t *testing.T) {
	board := runtime.NewStatusBoard()
	srv := NewServer(board, nil, func() any { return map[string]int{"stepsRun": 3} }, nil)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var got map[string]int
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["stepsRun"] != 3 {
		t.Errorf("got %v, want stepsRun=3", got)
	}
}

func TestHandlePlotRequiresXAndY(t *testing.T) {
	board := runtime.NewStatusBoard()
	srv := NewServer(board, make(chan *runtime.FileRequest, 1), nil, nil)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/plot", nil))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestHandlePlotRoundTripsThroughFileRequests(t *testing.T) {
	board := runtime.NewStatusBoard()
	requests := make(chan *runtime.FileRequest, 1)
	srv := NewServer(board, requests, nil, nil)

	go func() {
		req := <-requests
		req.Done <- runtime.FileResult{Series: []runtime.XYSeries{{X: []string{"0", "1"}, Y: []string{"0", "2"}}}}
	}()

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/plot?x=Time&y=Voltage", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rr.Code, rr.Body.String())
	}
	var got plotResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Series) != 1 || len(got.Series[0].X) != 2 {
		t.Errorf("got %+v", got)
	}
}

func TestHandlePlotSurfacesFileWriterError(t *testing.T) {
	board := runtime.NewStatusBoard()
	requests := make(chan *runtime.FileRequest, 1)
	srv := NewServer(board, requests, nil, nil)

	go func() {
		req := <-requests
		req.Done <- runtime.FileResult{Err: errBoom}
	}()

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/plot?x=Time&y=Voltage", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
}

func TestHandlePlotWithNoActiveRun(t *testing.T) {
	board := runtime.NewStatusBoard()
	srv := NewServer(board, nil, nil, nil)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/plot?x=Time&y=Voltage", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
}
