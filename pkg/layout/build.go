package layout

import (
	"github.com/matzehuels/flowcanvas/pkg/errors"
	"github.com/matzehuels/flowcanvas/pkg/flow"
	"github.com/matzehuels/flowcanvas/pkg/geometry"
)

// Build constructs a render tree from the selected version of fl.
//
// Every node gets the default card size from g and zeroed boxes and offsets.
// The input is never modified. An unknown step type fails the whole build
// with ErrCodeUnsupportedStepType; no partial tree is returned.
func Build(fl *flow.Flow, g geometry.Geometry) (Node, error) {
	if fl == nil || fl.Version.Trigger == nil {
		return nil, errors.New(errors.ErrCodeInvalidFlow, "flow has no trigger")
	}
	b := builder{geom: g, seen: make(map[string]bool)}
	root, err := b.step(fl.Version.Trigger, true)
	if err != nil {
		return nil, err
	}
	return root, nil
}

type builder struct {
	geom geometry.Geometry
	seen map[string]bool
}

func (b *builder) step(s *flow.Step, root bool) (Node, error) {
	if s == nil {
		return nil, nil
	}
	if b.seen[s.Name] {
		return nil, errors.New(errors.ErrCodeDuplicateStep, "step name %q used more than once", s.Name)
	}
	b.seen[s.Name] = true

	base := Base{
		Name:        s.Name,
		DisplayName: s.DisplayName,
		StepType:    s.Type,
		Width:       b.geom.NodeWidth,
		Height:      b.geom.NodeHeight,
	}

	// Triggers are only valid at the root and actions only below it.
	if flow.IsTriggerType(s.Type) != root {
		return nil, errors.UnsupportedStepType(s.Name, s.Type)
	}

	var (
		n   Node
		err error
	)
	switch s.Type {
	case flow.TypeEmptyTrigger, flow.TypePieceTrigger, flow.TypeWebhook, flow.TypeSchedule:
		n = &Trigger{Base: base}
	case flow.TypeCode, flow.TypePiece:
		n = &SimpleAction{Base: base}
	case flow.TypeLoopOnItems:
		loop := &LoopAction{Base: base}
		if loop.FirstLoopAction, err = b.step(s.FirstLoopAction, false); err != nil {
			return nil, err
		}
		n = loop
	case flow.TypeBranch:
		branch := &BranchAction{Base: base}
		if branch.OnSuccessAction, err = b.step(s.OnSuccessAction, false); err != nil {
			return nil, err
		}
		if branch.OnFailureAction, err = b.step(s.OnFailureAction, false); err != nil {
			return nil, err
		}
		n = branch
	default:
		return nil, errors.UnsupportedStepType(s.Name, s.Type)
	}

	next, err := b.step(s.NextAction, false)
	if err != nil {
		return nil, err
	}
	n.Common().Next = next
	return n, nil
}
