// Package runtime holds the generic, domain-agnostic primitives the
// executor/file-writer/observer participants share: a reusable buffer pool
// for the hot line-formatting path, and the atomic flags/status board that
// make up the shared RunContext without pulling in the instrument or step
// types themselves (avoiding an import cycle back into the root package).
package runtime

import "sync"

// bufSize is the buffer capacity kept in the pool; a formatted data-file
// row rarely exceeds a few hundred bytes even with a dozen columns.
const bufSize = 512

var linePool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, bufSize)
		return &b
	},
}

// GetLineBuffer returns a pooled, zero-length byte slice with bufSize of
// spare capacity, for building one data-file line before it is written.
// Caller must call PutLineBuffer when done.
func GetLineBuffer() []byte {
	return (*linePool.Get().(*[]byte))[:0]
}

// PutLineBuffer returns buf to the pool. Buffers whose capacity has grown
// past four times bufSize are dropped rather than pooled, so one oversized line can't pin
// an oversized buffer in the pool forever.
func PutLineBuffer(buf []byte) {
	if cap(buf) > bufSize*4 {
		return
	}
	buf = buf[:0]
	linePool.Put(&buf)
}
