package notify

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sleepywoodpecker/swing-platform/internal/metrics"
	"sleepywoodpecker/swing-platform/internal/swing"

	"go.uber.org/zap"
)

type fixedStatus swing.Status

func (f fixedStatus) Status() swing.Status {
	return swing.Status(f)
}

type testServer struct {
	*httptest.Server
	hub   *Hub
	tempo *swing.TempoStore
	links chan swing.LinkEvent
}

func newTestServer(t *testing.T, status swing.Status) *testServer {
	t.Helper()
	links := make(chan swing.LinkEvent, 8)
	hub := NewHub(links, 8, zap.NewNop())
	tempo := swing.NewTempoStore()
	met := metrics.New()

	h := NewHandler(hub, tempo, fixedStatus(status), met, zap.NewNop())
	srv := httptest.NewServer(NewRouter(h, met, zap.NewNop()))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})

	return &testServer{Server: srv, hub: hub, tempo: tempo, links: links}
}

func (s *testServer) postTempo(t *testing.T, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(s.URL+"/tempo", "text/plain", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /tempo: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandler_SetTempo(t *testing.T) {
	srv := newTestServer(t, swing.Status{})

	resp := srv.postTempo(t, "6/3")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var got swing.TempoConfig
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != (swing.TempoConfig{BackFrames: 6, DownFrames: 3}) {
		t.Errorf("response tempo = %v", got)
	}
	if srv.tempo.Get() != got {
		t.Errorf("stored tempo = %v", srv.tempo.Get())
	}
}

func TestHandler_SetTempo_malformedKeepsPrevious(t *testing.T) {
	srv := newTestServer(t, swing.Status{})
	srv.tempo.Set(swing.TempoConfig{BackFrames: 6, DownFrames: 3})

	for _, body := range []string{"63", "six/three", "6/", strings.Repeat("9", 80) + "/1"} {
		resp := srv.postTempo(t, body)
		if resp.StatusCode < 400 {
			t.Errorf("POST %q status = %d, want an error", body, resp.StatusCode)
		}
	}
	if srv.tempo.Get() != (swing.TempoConfig{BackFrames: 6, DownFrames: 3}) {
		t.Errorf("tempo changed to %v", srv.tempo.Get())
	}

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `swing_tempo_commands_total{result="rejected"} 4`) {
		t.Errorf("metrics missing rejected count:\n%s", body)
	}
}

func TestHandler_GetStatus(t *testing.T) {
	present := true
	srv := newTestServer(t, swing.Status{Phase: "ARMED_RECORDING", Connected: true, Presence: &present, Recorded: 40})

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()

	var got swing.Status
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Phase != "ARMED_RECORDING" || got.Recorded != 40 || got.Presence == nil || !*got.Presence {
		t.Errorf("status = %+v", got)
	}
}

func expectLink(t *testing.T, links <-chan swing.LinkEvent, want swing.LinkEvent) {
	t.Helper()
	select {
	case got := <-links:
		if got != want {
			t.Errorf("link = %v, want %v", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %v", want)
	}
}

func TestHandler_EventsStream(t *testing.T) {
	srv := newTestServer(t, swing.Status{})

	resp, err := http.Get(srv.URL + "/events")
	if err != nil {
		t.Fatalf("GET /events: %v", err)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	expectLink(t, srv.links, swing.LinkConnected)

	reader := bufio.NewReader(resp.Body)
	if line, _ := reader.ReadString('\n'); line != ": connected\n" {
		t.Errorf("preamble = %q", line)
	}
	reader.ReadString('\n')

	second, err := http.Get(srv.URL + "/events")
	if err != nil {
		t.Fatalf("second GET /events: %v", err)
	}
	second.Body.Close()
	if second.StatusCode != http.StatusConflict {
		t.Errorf("second companion status = %d, want 409", second.StatusCode)
	}

	payload := "(0.0125);(1200.0);(0.0125);(1100.0)"
	for _, msg := range []string{"START_SWING", payload} {
		if err := srv.hub.Notify(msg); err != nil {
			t.Fatalf("Notify(%q): %v", msg, err)
		}
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if line != "data: "+msg+"\n" {
			t.Errorf("line = %q, want data: %s", line, msg)
		}
		reader.ReadString('\n')
	}

	resp.Body.Close()
	expectLink(t, srv.links, swing.LinkDisconnected)
}
