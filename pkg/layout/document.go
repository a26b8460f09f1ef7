package layout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/flowcanvas/pkg/errors"
	"github.com/matzehuels/flowcanvas/pkg/geometry"
)

// =============================================================================
// Document - Serialized Layout
// =============================================================================

// Document is the wire format of a laid-out tree, used for API responses,
// the layout cache and `flowcanvas layout` output.
type Document struct {
	FlowID      string            `json:"flow_id,omitempty" bson:"flow_id,omitempty"`
	VersionID   string            `json:"version_id,omitempty" bson:"version_id,omitempty"`
	Revision    string            `json:"revision,omitempty" bson:"revision,omitempty"`
	Geometry    geometry.Geometry `json:"geometry" bson:"geometry"`
	Size        geometry.Size     `json:"size" bson:"size"`
	BranchDepth int               `json:"branch_depth" bson:"branch_depth"`
	Root        *NodeDoc          `json:"root" bson:"root"`
}

// NodeDoc is one serialized node. Link fields mirror the persisted flow.
type NodeDoc struct {
	Name           string         `json:"name" bson:"name"`
	DisplayName    string         `json:"display_name,omitempty" bson:"display_name,omitempty"`
	Kind           Kind           `json:"kind" bson:"kind"`
	StepType       string         `json:"step_type" bson:"step_type"`
	Width          float64        `json:"width" bson:"width"`
	Height         float64        `json:"height" bson:"height"`
	Offset         geometry.Point `json:"offset" bson:"offset"`
	BoundingBox    geometry.Size  `json:"bounding_box" bson:"bounding_box"`
	ConnectionsBox geometry.Size  `json:"connections_box" bson:"connections_box"`

	Next            *NodeDoc `json:"next,omitempty" bson:"next,omitempty"`
	FirstLoopAction *NodeDoc `json:"first_loop_action,omitempty" bson:"first_loop_action,omitempty"`
	OnSuccessAction *NodeDoc `json:"on_success_action,omitempty" bson:"on_success_action,omitempty"`
	OnFailureAction *NodeDoc `json:"on_failure_action,omitempty" bson:"on_failure_action,omitempty"`
}

// Export converts a tree to its serialized form.
func (t *Tree) Export() Document {
	return Document{
		FlowID:      t.FlowID,
		VersionID:   t.VersionID,
		Revision:    t.Revision,
		Geometry:    t.Geometry,
		Size:        t.Size(),
		BranchDepth: t.BranchDepth(),
		Root:        exportNode(t.Root),
	}
}

func exportNode(n Node) *NodeDoc {
	if n == nil {
		return nil
	}
	b := n.Common()
	d := &NodeDoc{
		Name:           b.Name,
		DisplayName:    b.DisplayName,
		Kind:           n.Kind(),
		StepType:       b.StepType,
		Width:          b.Width,
		Height:         b.Height,
		Offset:         b.Offset,
		BoundingBox:    b.BoundingBox,
		ConnectionsBox: b.ConnectionsBox,
		Next:           exportNode(b.Next),
	}
	switch n := n.(type) {
	case *LoopAction:
		d.FirstLoopAction = exportNode(n.FirstLoopAction)
	case *BranchAction:
		d.OnSuccessAction = exportNode(n.OnSuccessAction)
		d.OnFailureAction = exportNode(n.OnFailureAction)
	}
	return d
}

// Parse rebuilds a tree from a document. Geometry is taken as stored; it is
// not recomputed.
func (d Document) Parse() (*Tree, error) {
	root, err := parseNode(d.Root)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "layout document has no root")
	}
	return &Tree{
		FlowID:    d.FlowID,
		VersionID: d.VersionID,
		Revision:  d.Revision,
		Geometry:  d.Geometry,
		Root:      root,
	}, nil
}

func parseNode(d *NodeDoc) (Node, error) {
	if d == nil {
		return nil, nil
	}
	base := Base{
		Name:           d.Name,
		DisplayName:    d.DisplayName,
		StepType:       d.StepType,
		Width:          d.Width,
		Height:         d.Height,
		Offset:         d.Offset,
		BoundingBox:    d.BoundingBox,
		ConnectionsBox: d.ConnectionsBox,
	}

	var (
		n   Node
		err error
	)
	switch d.Kind {
	case KindTrigger:
		n = &Trigger{Base: base}
	case KindSimple:
		n = &SimpleAction{Base: base}
	case KindLoop:
		loop := &LoopAction{Base: base}
		if loop.FirstLoopAction, err = parseNode(d.FirstLoopAction); err != nil {
			return nil, err
		}
		n = loop
	case KindBranch:
		branch := &BranchAction{Base: base}
		if branch.OnSuccessAction, err = parseNode(d.OnSuccessAction); err != nil {
			return nil, err
		}
		if branch.OnFailureAction, err = parseNode(d.OnFailureAction); err != nil {
			return nil, err
		}
		n = branch
	default:
		return nil, errors.UnsupportedStepType(d.Name, string(d.Kind))
	}

	next, err := parseNode(d.Next)
	if err != nil {
		return nil, err
	}
	n.Common().Next = next
	return n, nil
}

// =============================================================================
// Document Serialization API
// =============================================================================

// MarshalDocument converts a document to indented JSON bytes.
func MarshalDocument(d Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteDocument(d, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalDocument decodes JSON bytes into a document.
func UnmarshalDocument(data []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return Document{}, fmt.Errorf("decode: %w", err)
	}
	return d, nil
}

// WriteDocument writes a document as JSON to an io.Writer.
func WriteDocument(d Document, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteDocumentFile writes a document to a JSON file.
func WriteDocumentFile(d Document, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteDocument(d, f)
}
