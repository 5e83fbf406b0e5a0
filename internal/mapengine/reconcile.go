package mapengine

import "sort"

// Reconciler diffs the declared marker set against what a backend has
// already rendered. Markers are keyed by ID: unchanged markers produce no
// calls at all, so re-rendering an identical set causes zero churn and
// marker identity survives unrelated state changes.
type Reconciler struct {
	rendered map[string]Marker
}

// NewReconciler creates a reconciler with nothing rendered.
func NewReconciler() *Reconciler {
	return &Reconciler{rendered: make(map[string]Marker)}
}

// Rendered returns the number of markers currently rendered.
func (r *Reconciler) Rendered() int { return len(r.rendered) }

// Apply reconciles desired against the rendered set, issuing the minimal
// add/update/remove calls on the engine. Returns the number of calls made.
// Calls happen in deterministic ID order: removals first, then adds and
// updates, so a marker is never duplicated mid-transition.
func (r *Reconciler) Apply(desired []Marker, eng MapEngine) int {
	want := make(map[string]Marker, len(desired))
	for _, m := range desired {
		want[m.ID] = m
	}

	var removes, changes []string
	for id := range r.rendered {
		if _, ok := want[id]; !ok {
			removes = append(removes, id)
		}
	}
	for id, m := range want {
		if have, ok := r.rendered[id]; !ok || have != m {
			changes = append(changes, id)
		}
	}
	sort.Strings(removes)
	sort.Strings(changes)

	for _, id := range removes {
		eng.RemoveMarker(id)
		delete(r.rendered, id)
	}
	for _, id := range changes {
		m := want[id]
		if _, ok := r.rendered[id]; ok {
			eng.UpdateMarker(m)
		} else {
			eng.AddMarker(m)
		}
		r.rendered[id] = m
	}

	return len(removes) + len(changes)
}

// Reset forgets the rendered set, forcing the next Apply to re-add
// everything. Used after an engine re-initializes.
func (r *Reconciler) Reset() {
	r.rendered = make(map[string]Marker)
}
