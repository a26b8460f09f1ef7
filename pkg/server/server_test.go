package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/flowcanvas/pkg/anchor"
	"github.com/matzehuels/flowcanvas/pkg/errors"
	"github.com/matzehuels/flowcanvas/pkg/layout"
	"github.com/matzehuels/flowcanvas/pkg/pipeline"
	"github.com/matzehuels/flowcanvas/pkg/render/canvas"
)

const branchFlow = `{
  "id": "flow-1",
  "version": {
    "trigger": {
      "name": "trigger",
      "type": "WEBHOOK",
      "nextAction": {
        "name": "check",
        "type": "BRANCH",
        "onSuccessAction": {"name": "notify", "type": "PIECE"}
      }
    }
  }
}`

const branchFlowYAML = `id: flow-1
version:
  trigger:
    name: trigger
    type: WEBHOOK
    nextAction:
      name: check
      type: BRANCH
      onSuccessAction: {name: notify, type: PIECE}
`

func newTestServer(t *testing.T, opts Options) (*Server, http.Handler) {
	t.Helper()
	runner := pipeline.NewRunner(nil, nil, nil)
	t.Cleanup(func() { runner.Close() })
	s := New(runner, opts)
	return s, s.Routes()
}

func do(t *testing.T, h http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&e); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return e
}

func TestHealthAndRequestID(t *testing.T) {
	_, h := newTestServer(t, Options{})

	rec := do(t, h, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("response has no request ID")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "abc" {
		t.Errorf("request ID = %q, want the caller's", got)
	}
}

func TestLayout(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"json", "application/json", branchFlow},
		{"yaml", "application/yaml; charset=utf-8", branchFlowYAML},
		{"sniffed", "", branchFlow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, h := newTestServer(t, Options{})

			rec := do(t, h, http.MethodPost, "/v1/layout", tt.contentType, tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body)
			}
			doc, err := layout.UnmarshalDocument(rec.Body.Bytes())
			if err != nil {
				t.Fatalf("decode document: %v", err)
			}
			if doc.FlowID != "flow-1" || doc.Revision == "" {
				t.Errorf("document = %s/%s", doc.FlowID, doc.Revision)
			}
			if s.Registry().Len() != 5 {
				t.Errorf("mounted %d anchors, want 5", s.Registry().Len())
			}
		})
	}
}

func TestLayoutWithoutMount(t *testing.T) {
	s, h := newTestServer(t, Options{})
	if rec := do(t, h, http.MethodPost, "/v1/layout?mount=false", "", branchFlow); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if s.Registry().Len() != 0 {
		t.Errorf("registry has %d anchors, want none", s.Registry().Len())
	}
}

func TestLatestLayout(t *testing.T) {
	_, h := newTestServer(t, Options{})

	rec := do(t, h, http.MethodGet, "/v1/layout", "", "")
	if rec.Code != http.StatusNotFound || decodeError(t, rec).Code != errors.ErrCodeNotFound {
		t.Fatalf("before any layout: %d %s", rec.Code, rec.Body)
	}

	first := do(t, h, http.MethodPost, "/v1/layout", "", branchFlow)
	var published layout.Document
	_ = json.Unmarshal(first.Body.Bytes(), &published)

	// An unsupported step type fails without replacing the published tree.
	bad := strings.Replace(branchFlow, `"type": "PIECE"`, `"type": "ROUTER"`, 1)
	rec = do(t, h, http.MethodPost, "/v1/layout", "", bad)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if e := decodeError(t, rec); e.Code != errors.ErrCodeUnsupportedStepType {
		t.Errorf("code = %s", e.Code)
	}

	rec = do(t, h, http.MethodGet, "/v1/layout", "", "")
	var latest layout.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &latest); err != nil {
		t.Fatalf("decode latest: %v", err)
	}
	if latest.Revision != published.Revision {
		t.Errorf("latest revision = %q, want %q", latest.Revision, published.Revision)
	}
}

func TestLayoutErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		opts     Options
		wantCode int
		wantErr  errors.Code
	}{
		{"malformed json", "{", Options{}, http.StatusBadRequest, errors.ErrCodeInvalidFlow},
		{"no trigger", `{"id":"f","version":{}}`, Options{}, http.StatusBadRequest, errors.ErrCodeInvalidFlow},
		{"duplicate step", strings.Replace(branchFlow, `"name": "notify"`, `"name": "check"`, 1),
			Options{}, http.StatusBadRequest, errors.ErrCodeDuplicateStep},
		{"too large", branchFlow, Options{MaxBodyBytes: 16}, http.StatusRequestEntityTooLarge, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, h := newTestServer(t, tt.opts)
			rec := do(t, h, http.MethodPost, "/v1/layout", "application/json", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body)
			}
			if e := decodeError(t, rec); e.Code != tt.wantErr {
				t.Errorf("code = %s, want %s", e.Code, tt.wantErr)
			}
		})
	}
}

func TestDepth(t *testing.T) {
	_, h := newTestServer(t, Options{})
	rec := do(t, h, http.MethodPost, "/v1/depth", "", branchFlow)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var got struct{ Depth int }
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Depth != 1 {
		t.Errorf("depth = %d, want 1", got.Depth)
	}
}

func TestAnchors(t *testing.T) {
	s, h := newTestServer(t, Options{})

	put := `{"step_name":"a","kind":"after","rect":{"x":0,"y":0,"width":25,"height":25}}`
	if rec := do(t, h, http.MethodPut, "/v1/anchors", "", put); rec.Code != http.StatusNoContent {
		t.Fatalf("PUT status = %d: %s", rec.Code, rec.Body)
	}

	for _, bad := range []string{
		`{"step_name":"a","kind":"sideways","rect":{}}`,
		`{"step_name":"","kind":"after","rect":{}}`,
		`{"step_name":"a","kind":"after","rect":{"width":-1}}`,
		`{"step_name":"a","kind":"after","extra":1}`,
	} {
		if rec := do(t, h, http.MethodPut, "/v1/anchors", "", bad); rec.Code != http.StatusBadRequest {
			t.Errorf("PUT %s: status = %d", bad, rec.Code)
		}
	}

	rec := do(t, h, http.MethodGet, "/v1/anchors", "", "")
	var got []anchor.Anchor
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if len(got) != 1 || got[0].StepName != "a" {
		t.Errorf("anchors = %+v", got)
	}

	if rec := do(t, h, http.MethodDelete, "/v1/anchors/a/after", "", ""); rec.Code != http.StatusNoContent {
		t.Errorf("DELETE status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, "/v1/anchors/a/after", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("second DELETE status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, "/v1/anchors/a/nowhere", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("DELETE bad kind status = %d", rec.Code)
	}
	if s.Registry().Len() != 0 {
		t.Errorf("registry Len() = %d", s.Registry().Len())
	}
}

func TestDragAndDrop(t *testing.T) {
	_, h := newTestServer(t, Options{})
	do(t, h, http.MethodPost, "/v1/layout", "", branchFlow)

	if rec := do(t, h, http.MethodPost, "/v1/drag", "", `{"step":"notify"}`); rec.Code != http.StatusNoContent {
		t.Fatalf("drag status = %d: %s", rec.Code, rec.Body)
	}

	// The empty failure arm's anchor is centred at (470, 329).
	rec := do(t, h, http.MethodPost, "/v1/drop", "", `{"point":{"x":470,"y":330}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("drop status = %d: %s", rec.Code, rec.Body)
	}
	var resp DropResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Candidate.Key() != (anchor.Key{StepName: "check", Kind: anchor.KindBranchFailure}) {
		t.Errorf("candidate = %+v", resp.Candidate)
	}
	if resp.Distance != 1 {
		t.Errorf("distance = %v, want 1", resp.Distance)
	}

	rec = do(t, h, http.MethodPost, "/v1/drop", "", `{"point":{"x":5000,"y":5000}}`)
	if rec.Code != http.StatusNoContent {
		t.Errorf("far drop status = %d, want 204", rec.Code)
	}

	rec = do(t, h, http.MethodDelete, "/v1/drag", "", "")
	var state anchor.DragState
	_ = json.Unmarshal(rec.Body.Bytes(), &state)
	if state.Dragged != "notify" || state.Candidate != nil {
		t.Errorf("final state = %+v", state)
	}

	if rec := do(t, h, http.MethodPost, "/v1/drag", "", `{"step":""}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty drag step status = %d", rec.Code)
	}
}

func TestDropWithoutStep(t *testing.T) {
	s, h := newTestServer(t, Options{})
	do(t, h, http.MethodPost, "/v1/layout", "", branchFlow)

	rec := do(t, h, http.MethodPost, "/v1/drop", "", `{"point":{"x":470,"y":330}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body)
	}
	if code := decodeError(t, rec).Code; code != errors.ErrCodeInvalidInput {
		t.Errorf("code = %s", code)
	}
	if state := s.dragger.State(); state.Active() || state.DropPoint != nil {
		t.Errorf("rejected drop changed drag state: %+v", state)
	}
}

func TestRender(t *testing.T) {
	_, h := newTestServer(t, Options{})

	if rec := do(t, h, http.MethodGet, "/v1/layout/render?format=dot", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("render before layout: status = %d", rec.Code)
	}
	do(t, h, http.MethodPost, "/v1/layout", "", branchFlow)

	rec := do(t, h, http.MethodGet, "/v1/layout/render?format=dot", "", "")
	if rec.Code != http.StatusOK || !bytes.HasPrefix(rec.Body.Bytes(), []byte("digraph")) {
		t.Fatalf("dot render: %d %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/vnd.graphviz" {
		t.Errorf("Content-Type = %q", ct)
	}

	rec = do(t, h, http.MethodGet, "/v1/layout/render?format=canvas&anchors=true", "", "")
	if !bytes.Contains(rec.Body.Bytes(), []byte(`data-kind="branch-failure"`)) {
		t.Errorf("canvas render has no anchors:\n%s", rec.Body)
	}

	rec = do(t, h, http.MethodGet, "/v1/layout/render?format=png", "", "")
	if rec.Code != http.StatusBadRequest || decodeError(t, rec).Code != errors.ErrCodeInvalidFormat {
		t.Errorf("png render: %d %s", rec.Code, rec.Body)
	}
}

func TestStream(t *testing.T) {
	_, h := newTestServer(t, Options{})
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/layout", "application/json", strings.NewReader(branchFlow))
	if err != nil {
		t.Fatalf("POST layout: %v", err)
	}
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/layout/stream", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	event, data := readEvent(t, resp.Body)
	if event != "layout" {
		t.Fatalf("event = %q", event)
	}
	doc, err := layout.UnmarshalDocument([]byte(data))
	if err != nil || doc.FlowID != "flow-1" {
		t.Errorf("streamed document %q: %v", data, err)
	}
}

const triggerOnlyFlow = `{
  "id": "flow-2",
  "version": {
    "trigger": {
      "name": "t2",
      "type": "SCHEDULE",
      "nextAction": {"name": "x2", "type": "CODE"}
    }
  }
}`

// Concurrent layouts must leave the registry holding exactly the anchors of
// the published tree, and readers must never see a half-mounted registry.
func TestConcurrentLayoutsKeepAnchorsConsistent(t *testing.T) {
	s, h := newTestServer(t, Options{})
	do(t, h, http.MethodPost, "/v1/layout", "", branchFlow)

	stop := make(chan struct{})
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			select {
			case <-stop:
				return
			default:
			}
			if s.Registry().Len() == 0 {
				t.Error("registry observed empty between layouts")
				return
			}
		}
	}()

	flows := []string{branchFlow, triggerOnlyFlow}
	for round := 0; round < 20; round++ {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if rec := do(t, h, http.MethodPost, "/v1/layout", "", flows[i%2]); rec.Code != http.StatusOK {
					t.Errorf("layout status = %d", rec.Code)
				}
			}(i)
		}
		wg.Wait()

		want := canvas.Place(s.runner.Latest()).Anchors
		got := s.Registry().Snapshot()
		if len(got) != len(want) {
			t.Fatalf("round %d: latest tree %s has %d anchors, registry holds %d: %+v",
				round, s.runner.Latest().FlowID, len(want), len(got), got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("round %d: anchor[%d] = %+v, want %+v", round, i, got[i], want[i])
			}
		}
	}
	close(stop)
	<-readerDone
}

func TestStreamOutlivesWriteTimeout(t *testing.T) {
	_, h := newTestServer(t, Options{})
	srv := httptest.NewUnstartedServer(h)
	srv.Config.WriteTimeout = 300 * time.Millisecond
	srv.Start()
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/layout/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()

	time.Sleep(2 * srv.Config.WriteTimeout)

	post, err := http.Post(srv.URL+"/v1/layout", "application/json", strings.NewReader(branchFlow))
	if err != nil {
		t.Fatalf("POST layout: %v", err)
	}
	post.Body.Close()

	event, data := readEvent(t, resp.Body)
	if event != "layout" {
		t.Fatalf("stream closed before delivering the layout published after the write timeout (event %q)", event)
	}
	if doc, err := layout.UnmarshalDocument([]byte(data)); err != nil || doc.FlowID != "flow-1" {
		t.Errorf("streamed document %q: %v", data, err)
	}
}

// readEvent reads one server-sent event and returns its name and data.
func readEvent(t *testing.T, r io.Reader) (event, data string) {
	t.Helper()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if line == "" && data != "" {
			break
		}
		if v, ok := strings.CutPrefix(line, "event: "); ok {
			event = v
		}
		if v, ok := strings.CutPrefix(line, "data: "); ok {
			data = v
		}
	}
	return event, data
}
