// Package lifecycle holds the event moderation state machine as an explicit
// transition table, independent of persistence.
package lifecycle

import (
	"time"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// Role is the authority a state action is issued under.
type Role string

const (
	RoleOwner Role = "owner"
	RoleAdmin Role = "admin"
)

type key struct {
	role   Role
	action model.StateAction
}

type rule struct {
	from map[model.State]bool
	to   model.State
}

func states(ss ...model.State) map[model.State]bool {
	m := make(map[model.State]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}

// editable are the states an unpublished event can be reworked in.
var editable = []model.State{model.StatePending, model.StateCanceled, model.StateRevision}

var table = map[key]rule{
	{RoleOwner, model.ActionSendToReview}:   {from: states(editable...), to: model.StatePending},
	{RoleOwner, model.ActionCancelReview}:   {from: states(editable...), to: model.StateCanceled},
	{RoleAdmin, model.ActionPublishEvent}:   {from: states(model.StatePending), to: model.StatePublished},
	{RoleAdmin, model.ActionRejectEvent}:    {from: states(editable...), to: model.StateCanceled},
	{RoleAdmin, model.ActionSendToRevision}: {from: states(model.StatePending, model.StatePublished, model.StateCanceled, model.StateRevision), to: model.StateRevision},
}

// Next returns the state reached by applying action to current under role.
// Unknown actions and actions from an illegal state fail with a
// model.KindStateConflict error.
func Next(role Role, current model.State, action model.StateAction) (model.State, error) {
	r, ok := table[key{role, action}]
	if !ok {
		return current, model.Errorf(model.KindStateConflict,
			"state action %q is not available to %s", action, role)
	}
	if !r.from[current] {
		return current, model.Errorf(model.KindStateConflict,
			"cannot apply %s to an event in state %s", action, current)
	}
	return r.to, nil
}

// OwnerCanEdit reports whether the initiator may change the event's fields.
// Published events are frozen for their owner.
func OwnerCanEdit(current model.State) bool {
	for _, s := range editable {
		if s == current {
			return true
		}
	}
	return false
}

// Apply moves ev to the next state and stamps PublishedOn on publication.
func Apply(ev *model.Event, role Role, action model.StateAction, now time.Time) error {
	next, err := Next(role, ev.State, action)
	if err != nil {
		return err
	}
	if next == model.StatePublished && ev.State != model.StatePublished {
		t := now
		ev.PublishedOn = &t
	}
	ev.State = next
	return nil
}
