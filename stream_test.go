package sensorlog

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestHubPublishAndSubscribe(t *testing.T) {
	hub := NewLiveHub(DefaultStreamConfig())

	sub := hub.Subscribe()
	defer sub.Close()
	if hub.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", hub.SubscriberCount())
	}

	hub.Publish([]Reading{testReading("sensor_001"), testReading("sensor_002")})

	for _, want := range []string{"sensor_001", "sensor_002"} {
		select {
		case r := <-sub.C():
			if r.SensorID != want {
				t.Errorf("expected %s, got %s", want, r.SensorID)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for published reading")
		}
	}
}

func TestHubSlowSubscriberDropsWithoutBlocking(t *testing.T) {
	cfg := DefaultStreamConfig()
	cfg.BufferSize = 1
	hub := NewLiveHub(cfg)

	sub := hub.Subscribe()
	defer sub.Close()

	// Nobody is draining; this must return promptly regardless.
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Publish([]Reading{
			testReading("sensor_001"),
			testReading("sensor_002"),
			testReading("sensor_003"),
		})
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	// Only the buffered reading survived.
	r := <-sub.C()
	if r.SensorID != "sensor_001" {
		t.Errorf("expected the first reading to be buffered, got %s", r.SensorID)
	}
	select {
	case r := <-sub.C():
		t.Errorf("expected overflow to be dropped, got %s", r.SensorID)
	default:
	}
}

func TestStoreStreamsFlushedBatches(t *testing.T) {
	store, err := Open(MemoryPath, testConfig())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	hub := NewLiveHub(DefaultStreamConfig())
	store.AttachHub(hub)
	sub := hub.Subscribe()
	defer sub.Close()

	if err := store.Append(testReading("sensor_001")); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	// Buffered only: nothing published yet.
	select {
	case r := <-sub.C():
		t.Fatalf("unflushed reading should not stream, got %s", r.SensorID)
	case <-time.After(20 * time.Millisecond):
	}

	if _, err := store.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	select {
	case r := <-sub.C():
		if r.SensorID != "sensor_001" {
			t.Errorf("unexpected streamed reading: %s", r.SensorID)
		}
	case <-time.After(time.Second):
		t.Fatal("flushed reading never streamed")
	}
}

func TestHubWebSocket(t *testing.T) {
	hub := NewLiveHub(DefaultStreamConfig())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer conn.Close()
	if resp != nil {
		resp.Body.Close()
	}

	// The upgrade races subscription registration; wait for it.
	deadline := time.Now().Add(time.Second)
	for hub.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("websocket client never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Publish([]Reading{testReading("sensor_001")})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Reading
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("failed to read streamed reading: %v", err)
	}
	if got.SensorID != "sensor_001" {
		t.Errorf("expected sensor_001, got %s", got.SensorID)
	}
	if got.Temperature == nil || *got.Temperature != 21.5 {
		t.Errorf("streamed reading lost fields: %+v", got)
	}
}
