// Package natstest starts in-process COMMS (NATS) servers for tests.
package natstest

import (
	"testing"
	"time"

	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"
)

// Start starts an in-process server on a random port and returns a connected
// client. JetStream is enabled with storage in a per-test temp dir.
func Start(t testing.TB) *comms.Conn {
	t.Helper()

	opts := &commsserver.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		NoLog:     true,
		NoSigs:    true,
		JetStream: true,
		StoreDir:  t.TempDir(),
	}

	ns, err := commsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("natstest:natstest - failed to create server: %v", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		t.Fatal("natstest:natstest - server failed to start")
	}

	nc, err := comms.Connect(ns.ClientURL(), comms.Timeout(5*time.Second))
	if err != nil {
		ns.Shutdown()
		t.Fatalf("natstest:natstest - failed to connect: %v", err)
	}

	t.Cleanup(func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return nc
}
