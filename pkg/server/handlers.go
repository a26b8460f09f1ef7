package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/flowcanvas/pkg/anchor"
	"github.com/matzehuels/flowcanvas/pkg/buildinfo"
	"github.com/matzehuels/flowcanvas/pkg/errors"
	"github.com/matzehuels/flowcanvas/pkg/flow"
	"github.com/matzehuels/flowcanvas/pkg/geometry"
	"github.com/matzehuels/flowcanvas/pkg/layout"
	"github.com/matzehuels/flowcanvas/pkg/observability"
	"github.com/matzehuels/flowcanvas/pkg/pipeline"
	"github.com/matzehuels/flowcanvas/pkg/render/canvas"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status string         `json:"status"`
		Build  buildinfo.Info `json:"build"`
	}{"ok", buildinfo.Get()})
}

// =============================================================================
// Layout
// =============================================================================

// handleLayout lays out the posted flow and publishes it. Unless ?mount=false
// is given, the tree's canvas anchors replace the registry contents.
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	fl, err := pipeline.ParseFlow(data, flowFormat(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	tree, err := s.updateLayout(r, fl, r.URL.Query().Get("mount") != "false")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tree.Export())
}

// updateLayout publishes a new layout for fl and, when mount is set, swaps
// the registry to its canvas anchors. Both happen under layoutMu.
func (s *Server) updateLayout(r *http.Request, fl *flow.Flow, mount bool) (*layout.Tree, error) {
	s.layoutMu.Lock()
	defer s.layoutMu.Unlock()

	tree, err := s.runner.Update(r.Context(), fl, pipeline.Options{
		Geometry: s.opts.Geometry,
		Refresh:  r.URL.Query().Get("refresh") == "true",
	})
	if err != nil {
		return nil, err
	}
	if mount {
		canvas.Place(tree).Remount(s.registry)
	}
	return tree, nil
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	tree := s.runner.Latest()
	if tree == nil {
		s.writeError(w, r, errors.New(errors.ErrCodeNotFound, "no layout has been published"))
		return
	}
	writeJSON(w, http.StatusOK, tree.Export())
}

// handleStream sends the latest document, then one event per publish, until
// the client goes away or the runner closes.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, errors.New(errors.ErrCodeUnsupported, "streaming not supported"))
		return
	}

	// The stream outlives the server's WriteTimeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Debug("stream write deadline not cleared", "error", err)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch, cancel := s.runner.Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case tree, ok := <-ch:
			if !ok {
				return
			}
			if tree == nil {
				continue
			}
			data, err := layout.MarshalDocument(tree.Export())
			if err != nil {
				s.logger.Warn("encode layout event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: layout\nid: %s\ndata: %s\n\n", tree.Revision, compact(data))
			flusher.Flush()
		}
	}
}

// compact strips the indentation from a document so it fits one data line.
func compact(data []byte) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return data
	}
	return buf.Bytes()
}

var renderContentTypes = map[string]string{
	pipeline.FormatJSON:   "application/json",
	pipeline.FormatDOT:    "text/vnd.graphviz",
	pipeline.FormatSVG:    "image/svg+xml",
	pipeline.FormatCanvas: "image/svg+xml",
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	tree := s.runner.Latest()
	if tree == nil {
		s.writeError(w, r, errors.New(errors.ErrCodeNotFound, "no layout has been published"))
		return
	}

	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = pipeline.FormatJSON
	}
	artifacts, err := s.runner.Render(r.Context(), tree, pipeline.Options{
		Formats:  []string{format},
		Detailed: q.Get("detailed") == "true",
		Anchors:  q.Get("anchors") == "true",
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", renderContentTypes[format])
	w.Header().Set("ETag", strconv.Quote(tree.Revision))
	_, _ = w.Write(artifacts[format])
}

func (s *Server) handleDepth(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	fl, err := pipeline.ParseFlow(data, flowFormat(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	root, err := layout.Build(fl, s.opts.Geometry)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"depth": layout.BranchDepth(root)})
}

// =============================================================================
// Anchors
// =============================================================================

func (s *Server) handleListAnchors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Snapshot())
}

func (s *Server) handlePutAnchor(w http.ResponseWriter, r *http.Request) {
	var a anchor.Anchor
	if err := decodeJSON(r, &a); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateAnchor(a); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.registry.Register(a)
	w.WriteHeader(http.StatusNoContent)
}

func validateAnchor(a anchor.Anchor) error {
	if err := errors.ValidateStepName(a.StepName); err != nil {
		return err
	}
	if _, err := anchor.ParseKind(string(a.Kind)); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid anchor")
	}
	if a.Rect.Width < 0 || a.Rect.Height < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "anchor rect has negative size")
	}
	return nil
}

func (s *Server) handleDeleteAnchor(w http.ResponseWriter, r *http.Request) {
	kind, err := anchor.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid anchor"))
		return
	}
	key := anchor.Key{StepName: chi.URLParam(r, "step"), Kind: kind}
	if !s.registry.Unregister(key) {
		s.writeError(w, r, errors.New(errors.ErrCodeNotFound, "no %s anchor for step %q", kind, key.StepName))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Drag and drop
// =============================================================================

// DragRequest starts a drag gesture.
type DragRequest struct {
	Step string `json:"step"`
}

// DropRequest reports a pointer position. Step defaults to the step of the
// drag in progress.
type DropRequest struct {
	Point geometry.Point `json:"point"`
	Step  string         `json:"step,omitempty"`
}

// DropResponse is the resolved candidate for a drop point.
type DropResponse struct {
	Candidate anchor.Anchor `json:"candidate"`
	Distance  float64       `json:"distance"`
}

func (s *Server) handleDragStart(w http.ResponseWriter, r *http.Request) {
	var req DragRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := errors.ValidateStepName(req.Step); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.dragger.SetDragPiece(req.Step)
	observability.Drag().OnDragStart(r.Context(), req.Step)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDragEnd(w http.ResponseWriter, r *http.Request) {
	state := s.dragger.EndDrag()
	if state.Active() {
		observability.Drag().OnDragEnd(r.Context(), state.Dragged)
	}
	writeJSON(w, http.StatusOK, state)
}

// handleDrop resolves a drop point. No candidate within the acceptance
// radius is not an error: the response is 204 with no body. A drop with no
// step and no drag in progress is rejected.
func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	var req DropRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	step := req.Step
	if step == "" {
		step = s.dragger.State().Dragged
	}
	if step == "" {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "drop needs a step: none given and no drag in progress"))
		return
	}

	a, ok := s.dragger.SetDropPoint(req.Point, step)
	if !ok {
		observability.Drag().OnResolve(r.Context(), step, "", "", 0)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	dist := geometry.Distance(req.Point, a.Rect.Center())
	observability.Drag().OnResolve(r.Context(), step, a.StepName, string(a.Kind), dist)
	writeJSON(w, http.StatusOK, DropResponse{Candidate: a, Distance: dist})
}
