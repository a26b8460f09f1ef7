// Package server exposes the layout engine over HTTP.
//
// The API is JSON throughout. A client posts a flow to /v1/layout and gets
// the layout document back; the same tree is published to subscribers of
// /v1/layout/stream and its canvas anchors replace the server's anchor
// registry, so /v1/drop resolves against what the client just drew.
//
//	POST   /v1/layout                  flow → layout document
//	GET    /v1/layout                  latest published document
//	GET    /v1/layout/stream           server-sent layout documents
//	GET    /v1/layout/render?format=   latest tree as json, dot, svg or canvas
//	POST   /v1/depth                   flow → {"depth": n}
//	GET    /v1/anchors                 registered anchors
//	PUT    /v1/anchors                 register or move an anchor
//	DELETE /v1/anchors/{step}/{kind}   unregister an anchor
//	POST   /v1/drag                    start dragging a step
//	DELETE /v1/drag                    end the drag, returning its final state
//	POST   /v1/drop                    resolve a drop point to a candidate
//	GET    /healthz                    liveness
//
// Failures are reported as {"code": ..., "message": ...} with the status
// derived from the error code.
package server
