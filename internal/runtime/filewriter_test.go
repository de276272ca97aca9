package runtime

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestFileWriterWriteAndReadBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.tsv")

	fw := NewFileWriter(nil)
	requests := make(chan *FileRequest, 16)
	done := make(chan struct{})
	go func() { fw.Run(requests); close(done) }()

	requests <- &FileRequest{Type: ReqNewFile, Path: path, Headers: []string{"Timestamp", "Voltage"}}
	requests <- &FileRequest{
		Type:   ReqWriteLine,
		Line:   "2026-07-31 00:00:00.000000\t1.5",
		Values: map[string]string{"Timestamp": "2026-07-31 00:00:00.000000", "Voltage": "1.5"},
	}

	reply := make(chan FileResult, 1)
	requests <- &FileRequest{Type: ReqReadLatest, Done: reply}
	latest := <-reply
	if latest.Latest["Voltage"] != "1.5" {
		t.Errorf("ReadLatest = %v, want Voltage=1.5", latest.Latest)
	}

	unreadReply := make(chan FileResult, 1)
	requests <- &FileRequest{Type: ReqReadUnread, Done: unreadReply}
	unread := <-unreadReply
	if len(unread.Unread) != 1 {
		t.Fatalf("ReadUnread = %v, want 1 row", unread.Unread)
	}

	requests <- &FileRequest{Type: ReqTerminateFile}
	<-done

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "Timestamp\tVoltage\n2026-07-31 00:00:00.000000\t1.5\n"
	if string(raw) != want {
		t.Errorf("file contents = %q, want %q", raw, want)
	}
}

func TestFileWriterReadAllDownsamples(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.tsv")

	fw := NewFileWriter(nil)
	requests := make(chan *FileRequest, 1)
	done := make(chan struct{})
	go func() { fw.Run(requests); close(done) }()

	requests <- &FileRequest{Type: ReqNewFile, Path: path, Headers: []string{"Timestamp", "X", "Y"}}
	const n = DownsampleTarget*2 + 3
	for i := 0; i < n; i++ {
		x := strconv.Itoa(i)
		y := strconv.Itoa(i * 2)
		requests <- &FileRequest{
			Type:   ReqWriteLine,
			Line:   "t\t" + x + "\t" + y,
			Values: map[string]string{"Timestamp": "t", "X": x, "Y": y},
		}
	}

	reply := make(chan FileResult, 1)
	requests <- &FileRequest{Type: ReqReadAll, XColumn: "X", YColumns: []string{"Y"}, Done: reply}
	res := <-reply
	if res.Err != nil {
		t.Fatalf("ReadAll: %v", res.Err)
	}
	if len(res.Series) != 1 {
		t.Fatalf("Series = %v, want 1 pair", res.Series)
	}
	if len(res.Series[0].X) > DownsampleTarget {
		t.Errorf("downsampled length = %d, want <= %d", len(res.Series[0].X), DownsampleTarget)
	}
	if res.Series[0].X[0] != "0" {
		t.Errorf("first downsampled point = %q, want 0", res.Series[0].X[0])
	}

	requests <- &FileRequest{Type: ReqTerminateFile}
	<-done
}

func TestFileWriterUnknownRequestDoesNotPanic(t *testing.T) {
	fw := NewFileWriter(nil)
	requests := make(chan *FileRequest, 1)
	done := make(chan struct{})
	go func() { fw.Run(requests); close(done) }()

	requests <- &FileRequest{Type: "bogus"}
	requests <- &FileRequest{Type: ReqTerminateFile}
	<-done
}

func TestParseFloatOrDash(t *testing.T) {
	if v, ok := ParseFloatOrDash("-"); ok || v != 0 {
		t.Errorf("ParseFloatOrDash(-) = (%v, %v), want (0, false)", v, ok)
	}
	if v, ok := ParseFloatOrDash("3.5"); !ok || v != 3.5 {
		t.Errorf("ParseFloatOrDash(3.5) = (%v, %v), want (3.5, true)", v, ok)
	}
}
