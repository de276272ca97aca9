package main

import (
	"io"
	"net"
	"testing"
)

func TestTCPDialConnectsToListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	conn, err := tcpDial(ln.Addr().String())
	if err != nil {
		t.Fatalf("tcpDial: %v", err)
	}
	if c, ok := conn.(io.Closer); ok {
		defer c.Close()
	}
}

func TestTCPDialFailsFastOnClosedPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	if _, err := tcpDial(addr); err == nil {
		t.Error("tcpDial to a closed port should fail")
	}
}

func TestNewTCPTransportEnumeratesGivenAddresses(t *testing.T) {
	transport := newTCPTransport([]string{"127.0.0.1:5001", "127.0.0.1:5002"})
	addrs, err := transport.Enumerate()
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if len(addrs) != 2 {
		t.Errorf("Enumerate() = %v, want 2 addresses", addrs)
	}
}
