// Package flow defines the persisted flow format consumed by the layout engine.
//
// A flow version is a tree of steps rooted at a trigger. Each step carries a
// type discriminant, opaque business settings and forward-only links to the
// steps that follow it:
//
//	{
//	  "id": "flow_1",
//	  "version": {
//	    "id": "v3",
//	    "displayName": "Notify on new order",
//	    "trigger": {
//	      "name": "trigger",
//	      "type": "WEBHOOK",
//	      "nextAction": {
//	        "name": "step_1",
//	        "type": "BRANCH",
//	        "onSuccessAction": {"name": "step_2", "type": "CODE"}
//	      }
//	    }
//	  }
//	}
//
// The same structure may be written as YAML. The layout engine never mutates
// values of this package; see pkg/layout for the render tree built from them.
package flow

// Step types for triggers.
const (
	TypeEmptyTrigger = "EMPTY"
	TypePieceTrigger = "PIECE_TRIGGER"
	TypeWebhook      = "WEBHOOK"
	TypeSchedule     = "SCHEDULE"
)

// Step types for actions.
const (
	TypeCode        = "CODE"
	TypePiece       = "PIECE"
	TypeLoopOnItems = "LOOP_ON_ITEMS"
	TypeBranch      = "BRANCH"
)

// Flow is a stored flow with its currently selected version.
type Flow struct {
	ID          string  `json:"id" yaml:"id"`
	DisplayName string  `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Version     Version `json:"version" yaml:"version"`
}

// Version is one immutable revision of a flow.
type Version struct {
	ID          string `json:"id,omitempty" yaml:"id,omitempty"`
	DisplayName string `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Trigger     *Step  `json:"trigger" yaml:"trigger"`
}

// Step is a persisted trigger or action.
//
// Which link fields are meaningful depends on Type: FirstLoopAction only for
// LOOP_ON_ITEMS, OnSuccessAction/OnFailureAction only for BRANCH.
type Step struct {
	Name        string         `json:"name" yaml:"name"`
	DisplayName string         `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Type        string         `json:"type" yaml:"type"`
	Valid       bool           `json:"valid,omitempty" yaml:"valid,omitempty"`
	Settings    map[string]any `json:"settings,omitempty" yaml:"settings,omitempty"`

	NextAction      *Step `json:"nextAction,omitempty" yaml:"nextAction,omitempty"`
	FirstLoopAction *Step `json:"firstLoopAction,omitempty" yaml:"firstLoopAction,omitempty"`
	OnSuccessAction *Step `json:"onSuccessAction,omitempty" yaml:"onSuccessAction,omitempty"`
	OnFailureAction *Step `json:"onFailureAction,omitempty" yaml:"onFailureAction,omitempty"`
}

// IsTriggerType reports whether t is one of the trigger discriminants.
func IsTriggerType(t string) bool {
	switch t {
	case TypeEmptyTrigger, TypePieceTrigger, TypeWebhook, TypeSchedule:
		return true
	}
	return false
}

// Label returns the display name if set, otherwise the step name.
func (s *Step) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Name
}

// Count returns the number of steps reachable from s, s included.
func (s *Step) Count() int {
	if s == nil {
		return 0
	}
	return 1 + s.NextAction.Count() + s.FirstLoopAction.Count() +
		s.OnSuccessAction.Count() + s.OnFailureAction.Count()
}

// StepCount returns the number of steps in the selected version.
func (f *Flow) StepCount() int {
	return f.Version.Trigger.Count()
}
