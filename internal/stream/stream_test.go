package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shashankyld/cognibench/internal/model"
)

var upgrader = websocket.Upgrader{}

// sessionServer streams the given messages to every connecting client.
func sessionServer(t *testing.T, messages []string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		for _, msg := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestCollect_AssemblesPerSubjectObservations(t *testing.T) {
	srv := sessionServer(t, []string{
		`{"type":"trial","trial":{"subject":0,"stimulus":[1,0],"reward":1,"action":0}}`,
		`{"type":"trial","trial":{"subject":1,"stimulus":[0,1],"reward":0,"action":1}}`,
		`{"type":"trial","trial":{"subject":0,"stimulus":[1,1],"reward":1,"action":1}}`,
		`{"type":"end"}`,
	})

	set, err := NewCollector(wsURL(srv)).Collect(context.Background(), 2)
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if set.Subjects == nil || len(set.Subjects) != 2 {
		t.Fatalf("expected 2 subject observation sets, got %+v", set)
	}

	s0, s1 := set.Subjects[0], set.Subjects[1]
	if s0.Len() != 2 || s1.Len() != 1 {
		t.Fatalf("trial counts = %d/%d, want 2/1", s0.Len(), s1.Len())
	}
	if s0.Actions[1] != 1 || s0.Rewards[0] != 1 {
		t.Errorf("subject 0 observations out of order: %+v", s0)
	}
	if s1.Stimuli[0][1] != 1 {
		t.Errorf("subject 1 stimulus = %v, want [0 1]", s1.Stimuli[0])
	}
	if err := s0.Validate(true); err != nil {
		t.Errorf("assembled observations invalid: %v", err)
	}
}

func TestCollect_SingleSubjectShape(t *testing.T) {
	srv := sessionServer(t, []string{
		`{"type":"trial","trial":{"subject":0,"stimulus":[1],"reward":1,"action":0}}`,
		`{"type":"end"}`,
	})

	set, err := NewCollector(wsURL(srv)).Collect(context.Background(), 1)
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if set.Single == nil || set.Single.Len() != 1 {
		t.Fatalf("expected single-subject observations, got %+v", set)
	}
}

func TestCollect_SkipsMalformedMessages(t *testing.T) {
	srv := sessionServer(t, []string{
		`not json at all`,
		`{"type":"heartbeat"}`,
		`{"type":"trial"}`,
		`{"type":"trial","trial":{"subject":0,"stimulus":[1],"reward":0,"action":1}}`,
		`{"type":"end"}`,
	})

	set, err := NewCollector(wsURL(srv)).Collect(context.Background(), 1)
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if set.Single.Len() != 1 {
		t.Errorf("trial count = %d, want 1 (malformed messages skipped)", set.Single.Len())
	}
}

func TestCollect_UnknownSubjectReconnects(t *testing.T) {
	// An out-of-range subject tag drops the connection; the collector
	// reconnects and the replayed session can then complete.
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if attempts.Add(1) == 1 {
			conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"trial","trial":{"subject":5,"stimulus":[1],"reward":0,"action":0}}`))
			return
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"end"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := NewCollector(wsURL(srv)).Collect(ctx, 1); err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if got := attempts.Load(); got < 2 {
		t.Errorf("server saw %d connections, want at least 2", got)
	}
}

func TestCollect_InvalidSubjectCount(t *testing.T) {
	if _, err := NewCollector("ws://unused").Collect(context.Background(), 0); !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("got %v, want configuration error", err)
	}
}

func TestCollect_ContextCancellation(t *testing.T) {
	// A server that never sends anything; cancellation must end the collect.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := NewCollector(wsURL(srv)).Collect(ctx, 1)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if time.Since(start) > 3*time.Second {
		t.Errorf("collect took %v after cancellation", time.Since(start))
	}
}
