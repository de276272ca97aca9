package runtime

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"sync"
)

// RequestType is one of the file-request-channel operations from spec §6.1.
// FileWriter is deliberately ignorant of the domain Record type: callers
// render a row to tab-separated text (via Record.Row) before it reaches
// this package, so internal/runtime has no dependency back on the root
// package (see internal/interfaces doc comment).
type RequestType string

const (
	ReqNewFile       RequestType = "New File"
	ReqOpenFile      RequestType = "Open File"
	ReqWriteLine     RequestType = "Write Line"
	ReqCloseFile     RequestType = "Close File"
	ReqGetCurrent    RequestType = "Get Current File"
	ReqReadUnread    RequestType = "Read Unread"
	ReqReadLatest    RequestType = "Read Latest"
	ReqReadAll       RequestType = "Read All"
	ReqTerminateFile RequestType = "Terminate File Process"
)

// FileRequest is one tagged item on the file-request channel (spec §6.1).
type FileRequest struct {
	Type RequestType

	Path    string
	Headers []string

	// Line carries the already-rendered tab-separated row for Write Line,
	// and Values carries the same row's header->cell map for the
	// unread-buffer / latest-value bookkeeping.
	Line   string
	Values map[string]string

	XColumn  string
	YColumns []string

	// Done, if non-nil, receives the response for request types that have
	// one (spec §6.1's "response slot" column). Buffered by callers with
	// capacity 1 so the file writer never blocks on a reply nobody reads.
	Done chan FileResult
}

// XYSeries is one (x, y) column pair's data after Read All's projection and
// downsampling.
type XYSeries struct {
	X []string
	Y []string
}

// FileResult is the reply payload for request types that produce one.
type FileResult struct {
	Path    string
	Headers []string
	Unread  []map[string]string
	Latest  map[string]string
	Series  []XYSeries
	Err     error
}

// FileWriter services the file-request FIFO against a single open data
// file, the sole consumer of writes during a run (spec §4.5, §5). It is
// grounded on the teacher's single-resource-owning worker shape
// (internal/queue.Runner: one goroutine, one owned resource, injected
// logger) generalized from an io_uring queue to a text data file.
type FileWriter struct {
	mu      sync.Mutex
	path    string
	headers []string
	file    *os.File
	writer  *bufio.Writer
	unread  []map[string]string
	latest  map[string]string

	logger Logger
}

// NewFileWriter creates an idle FileWriter with no file open.
func NewFileWriter(logger Logger) *FileWriter {
	return &FileWriter{latest: make(map[string]string), logger: logger}
}

// Run drains requests until the channel closes or a Terminate File Process
// request arrives, whichever comes first.
func (w *FileWriter) Run(requests <-chan *FileRequest) {
	for req := range requests {
		result := w.handle(req)
		if req.Done != nil {
			req.Done <- result
		}
		if req.Type == ReqTerminateFile {
			return
		}
	}
}

func (w *FileWriter) handle(req *FileRequest) FileResult {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch req.Type {
	case ReqNewFile:
		return w.startFile(req.Path, req.Headers)
	case ReqOpenFile:
		return w.openFile(req.Path)
	case ReqWriteLine:
		w.writeLine(req.Line, req.Values)
		return FileResult{}
	case ReqCloseFile:
		w.closeFile()
		return FileResult{}
	case ReqGetCurrent:
		return FileResult{Path: w.path, Headers: append([]string{}, w.headers...)}
	case ReqReadUnread:
		unread := w.unread
		w.unread = nil
		return FileResult{Unread: unread}
	case ReqReadLatest:
		cp := make(map[string]string, len(w.latest))
		for k, v := range w.latest {
			cp[k] = v
		}
		return FileResult{Latest: cp}
	case ReqReadAll:
		series, err := w.readAll(req.XColumn, req.YColumns)
		return FileResult{Series: series, Err: err}
	case ReqTerminateFile:
		w.closeFile()
		return FileResult{}
	default:
		if w.logger != nil {
			w.logger.Warnf("unknown file request type %q", req.Type)
		}
		return FileResult{}
	}
}

func (w *FileWriter) startFile(path string, headers []string) FileResult {
	w.closeFile()
	f, err := os.Create(path)
	if err != nil {
		if w.logger != nil {
			w.logger.Errorf("create %s: %v", path, err)
		}
		return FileResult{Err: err}
	}
	w.path = path
	w.headers = headers
	w.file = f
	w.writer = bufio.NewWriter(f)
	w.unread = nil
	w.latest = make(map[string]string)
	_, err = w.writer.WriteString(strings.Join(headers, "\t") + "\n")
	if err == nil {
		err = w.writer.Flush()
	}
	if w.logger != nil {
		w.logger.Infof("created new data file %s", path)
	}
	return FileResult{Err: err}
}

func (w *FileWriter) openFile(path string) FileResult {
	w.closeFile()
	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return FileResult{Err: err}
	}
	w.path = path
	w.file = f
	w.writer = bufio.NewWriter(f)

	scanner := bufio.NewScanner(f)
	headers := []string{}
	if scanner.Scan() {
		headers = strings.Split(scanner.Text(), "\t")
	}
	w.headers = headers
	w.unread = nil
	w.latest = make(map[string]string)
	if w.logger != nil {
		w.logger.Infof("opened existing data file %s", path)
	}
	return FileResult{Headers: headers}
}

func (w *FileWriter) writeLine(line string, values map[string]string) {
	if w.file == nil {
		return
	}
	w.unread = append(w.unread, values)
	for k, v := range values {
		w.latest[k] = v
	}
	if _, err := w.writer.WriteString(line + "\n"); err != nil {
		if w.logger != nil {
			w.logger.Errorf("write line to %s: %v", w.path, err)
		}
		return
	}
	if err := w.writer.Flush(); err != nil && w.logger != nil {
		w.logger.Errorf("flush %s: %v", w.path, err)
	}
}

func (w *FileWriter) closeFile() {
	if w.file == nil {
		return
	}
	if w.writer != nil {
		_ = w.writer.Flush()
	}
	if err := w.file.Close(); err != nil && w.logger != nil {
		w.logger.Errorf("close %s: %v", w.path, err)
	}
	w.file = nil
	w.writer = nil
	w.unread = nil
}

// DownsampleTarget is the length Read All decimates toward (spec §6.1).
const DownsampleTarget = 2000

// readAll scans the current file, projects xColumn against each of
// yColumns independently, and downsamples each pair by pairwise decimation
// until its length is at most DownsampleTarget (spec §6.1, with the
// original's per-pair independence from FileHandlers.py).
func (w *FileWriter) readAll(xColumn string, yColumns []string) ([]XYSeries, error) {
	if w.path == "" {
		out := make([]XYSeries, len(yColumns))
		return out, nil
	}

	f, err := os.Open(w.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		out := make([]XYSeries, len(yColumns))
		return out, nil
	}
	headers := strings.Split(scanner.Text(), "\t")
	xIdx := indexOf(headers, xColumn)
	yIdx := make([]int, len(yColumns))
	for i, y := range yColumns {
		yIdx[i] = indexOf(headers, y)
	}

	series := make([]XYSeries, len(yColumns))
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if xIdx < 0 || xIdx >= len(fields) {
			continue
		}
		xv := fields[xIdx]
		if xv == "-" {
			continue
		}
		for i, yi := range yIdx {
			if yi < 0 || yi >= len(fields) {
				continue
			}
			yv := fields[yi]
			if yv == "-" {
				continue
			}
			series[i].X = append(series[i].X, xv)
			series[i].Y = append(series[i].Y, yv)
		}
	}

	for i := range series {
		series[i] = downsamplePair(series[i])
	}
	return series, nil
}

func indexOf(headers []string, name string) int {
	for i, h := range headers {
		if h == name {
			return i
		}
	}
	return -1
}

// downsamplePair applies spec §6.1's decimation rule: while len > target,
// pad to even length by repeating the last element, reshape into pairs, and
// keep the first of each pair.
func downsamplePair(s XYSeries) XYSeries {
	for len(s.X) > DownsampleTarget {
		if len(s.X)%2 != 0 {
			s.X = append(s.X, s.X[len(s.X)-1])
			s.Y = append(s.Y, s.Y[len(s.Y)-1])
		}
		s.X = keepFirstOfPairs(s.X)
		s.Y = keepFirstOfPairs(s.Y)
	}
	return s
}

func keepFirstOfPairs(vals []string) []string {
	out := make([]string, 0, len(vals)/2)
	for i := 0; i < len(vals); i += 2 {
		out = append(out, vals[i])
	}
	return out
}

// ParseFloatOrDash is a small helper for callers projecting a numeric
// column: it returns (0, false) for the missing-cell sentinel instead of
// erroring.
func ParseFloatOrDash(cell string) (float64, bool) {
	if cell == "-" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
