// Package main implements pxcrun, a headless runner for pxc sequence
// descriptors: load a descriptor, connect its instruments over a
// newline-framed TCP bus, run the sequence, report exit status.
package main

import (
	"net"
	"time"

	"github.com/jstraq/go-pxc"
)

// dialTimeout bounds how long connecting to one instrument's TCP address
// may take before FindInstruments/binding gives up on it.
const dialTimeout = 3 * time.Second

// tcpDial opens a newline-framed TCP connection to address (host:port) and
// satisfies pxc.LineWriter directly, since net.Conn is already an
// io.ReadWriter. Only the physical bus driver is out of scope per spec §1 —
// a generic TCP line connection isn't GPIB/VISA-specific, so it's the one
// concrete Dialer this command ships.
func tcpDial(address string) (pxc.LineWriter, error) {
	return net.DialTimeout("tcp", address, dialTimeout)
}

// newTCPTransport builds a LineTransport whose address list is fixed at
// construction time: unlike a real instrument bus, TCP has no broadcast
// enumeration, so the operator supplies the known address list up front
// (spec §7 Non-goals: bus enumeration specifics are out of scope; this is
// the minimal stand-in needed to exercise Apparatus.FindInstruments).
func newTCPTransport(addresses []string) *pxc.LineTransport {
	return pxc.NewLineTransport(tcpDial, func() ([]string, error) {
		return addresses, nil
	})
}
