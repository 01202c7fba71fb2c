//go:build integration
// +build integration

package nats

import (
	"context"
	"testing"
	"time"

	"github.com/mutaplan/mutaplan/internal/testutil"
)

func TestIntegration_NewClient(t *testing.T) {
	testNATS := testutil.RequireNATS(t)

	client, err := NewClient(testNATS.URL)
	if err != nil {
		t.Skipf("skipping test: could not connect to NATS: %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("client should be connected")
	}
	if client.Conn() == nil {
		t.Error("Conn() should not be nil")
	}
	if client.JetStream() == nil {
		t.Error("JetStream() should not be nil")
	}
}

func TestIntegration_HealthCheck(t *testing.T) {
	testNATS := testutil.RequireNATS(t)

	client, err := NewClient(testNATS.URL)
	if err != nil {
		t.Skipf("skipping test: could not connect to NATS: %v", err)
	}
	defer client.Close()

	if err := client.HealthCheck(); err != nil {
		t.Errorf("HealthCheck() error: %v", err)
	}
}

func TestIntegration_SetupStreams(t *testing.T) {
	testNATS := testutil.RequireNATS(t)

	client, err := NewClient(testNATS.URL)
	if err != nil {
		t.Skipf("skipping test: could not connect to NATS: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.SetupStreams(ctx); err != nil {
		t.Fatalf("SetupStreams() error: %v", err)
	}

	js := client.JetStream()
	stream, err := js.Stream(ctx, StreamJobs)
	if err != nil {
		t.Fatalf("failed to get stream: %v", err)
	}
	if stream == nil {
		t.Error("stream should exist after SetupStreams")
	}

	if _, err := js.Consumer(ctx, StreamJobs, ConsumerPlanning); err != nil {
		t.Fatalf("failed to get consumer: %v", err)
	}

	js.DeleteStream(ctx, StreamJobs)
}

func TestIntegration_PublishAndReceive(t *testing.T) {
	testNATS := testutil.RequireNATS(t)

	client, err := NewClient(testNATS.URL)
	if err != nil {
		t.Skipf("skipping test: could not connect to NATS: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.SetupStreams(ctx); err != nil {
		t.Fatalf("SetupStreams() error: %v", err)
	}
	defer client.JetStream().DeleteStream(ctx, StreamJobs)

	testData := []byte(`{"job_id": "test-123"}`)
	ack, err := client.Publish(ctx, SubjectJobPlanning, testData)
	if err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	if ack == nil {
		t.Fatal("Publish() returned nil ack")
	}
	if ack.Stream != StreamJobs {
		t.Errorf("ack.Stream = %s, want %s", ack.Stream, StreamJobs)
	}
}

func TestIntegration_Close(t *testing.T) {
	testNATS := testutil.RequireNATS(t)

	client, err := NewClient(testNATS.URL)
	if err != nil {
		t.Skipf("skipping test: could not connect to NATS: %v", err)
	}

	if !client.IsConnected() {
		t.Error("client should be connected before close")
	}

	client.Close()

	if client.IsConnected() {
		t.Error("client should not be connected after close")
	}

	client.Close() // idempotent
}

func TestIntegration_HealthCheckAfterClose(t *testing.T) {
	testNATS := testutil.RequireNATS(t)

	client, err := NewClient(testNATS.URL)
	if err != nil {
		t.Skipf("skipping test: could not connect to NATS: %v", err)
	}

	client.Close()

	if err := client.HealthCheck(); err == nil {
		t.Error("HealthCheck() should return error after close")
	}
}

func TestIntegration_PublishNotConnected(t *testing.T) {
	testNATS := testutil.RequireNATS(t)

	client, err := NewClient(testNATS.URL)
	if err != nil {
		t.Skipf("skipping test: could not connect to NATS: %v", err)
	}

	client.Close()

	ctx := context.Background()
	if _, err := client.Publish(ctx, SubjectJobPlanning, []byte("data")); err == nil {
		t.Error("Publish() should return error when not connected")
	}
}

func TestIntegration_SetupStreamsNotConnected(t *testing.T) {
	testNATS := testutil.RequireNATS(t)

	client, err := NewClient(testNATS.URL)
	if err != nil {
		t.Skipf("skipping test: could not connect to NATS: %v", err)
	}

	client.Close()

	if err := client.SetupStreams(context.Background()); err == nil {
		t.Error("SetupStreams() should return error when not connected")
	}
}
