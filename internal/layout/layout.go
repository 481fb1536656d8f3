// Package layout computes the declarative editor/preview pane arrangement
// for a playground from the set of present roles and the configured layout
// preference. Planning is a pure function: no host state is consulted and
// identical inputs always produce structurally identical plans.
package layout

import (
	"github.com/livepreview/swing"
)

// Preference is the declarative layout policy, from configuration or a
// manifest override.
type Preference string

const (
	PrefGrid       Preference = "grid"
	PrefPreview    Preference = "preview"
	PrefSplitLeft  Preference = "splitLeft"
	PrefSplitRight Preference = "splitRight"
	PrefSplitTop   Preference = "splitTop"
)

// Orientation is the direction panes are arranged in.
type Orientation string

const (
	Horizontal Orientation = "horizontal" // side by side
	Vertical   Orientation = "vertical"   // stacked
)

// PaneKind distinguishes leaf pane contents.
type PaneKind string

const (
	PaneEditor  PaneKind = "editor"
	PanePreview PaneKind = "preview"
	PaneSplit   PaneKind = "split"
)

// Pane is either a leaf (editor or preview) or a nested split. Weight is the
// pane's share of its parent; sibling weights sum to 1.0.
type Pane struct {
	Kind        PaneKind
	Role        swing.Role // set for editor leaves
	Weight      float64
	Orientation Orientation // set for splits
	Children    []Pane
}

// Plan is the computed pane tree. It is derived state, recomputed on every
// session open and never persisted.
type Plan struct {
	Orientation Orientation
	Panes       []Pane
	PreviewOnly bool
}

// editorOrder fixes pane assignment: markup, then stylesheet, then script.
var editorOrder = []swing.Role{swing.RoleMarkup, swing.RoleStylesheet, swing.RoleScript}

// Plan computes the pane arrangement for the given present roles and
// preference.
func PlanFor(present map[swing.Role]bool, pref Preference) Plan {
	if pref == PrefPreview {
		// Layout application is skipped entirely; only the preview
		// surface is shown.
		return Plan{PreviewOnly: true}
	}

	var editors []swing.Role
	for _, r := range editorOrder {
		if present[r] {
			editors = append(editors, r)
		}
	}

	plan := Plan{Orientation: Horizontal}
	switch len(editors) {
	case 3:
		if pref == PrefGrid {
			plan.Panes = gridPanes(editors)
		} else {
			plan.Panes = stackedTriplePanes(editors)
		}
	case 2:
		plan.Panes = []Pane{
			splitPane(Vertical, 0.5,
				editorPane(editors[0], 0.5),
				editorPane(editors[1], 0.5)),
			previewPane(0.5),
		}
	case 1:
		plan.Panes = []Pane{
			editorPane(editors[0], 0.5),
			previewPane(0.5),
		}
	default:
		plan.Panes = []Pane{previewPane(1.0)}
	}

	switch pref {
	case PrefSplitRight:
		// Preview moves to the left-most pane, editors shift right.
		reverse(plan.Panes)
	case PrefSplitTop:
		plan.Orientation = Vertical
	}

	return plan
}

// gridPanes arranges three editors plus the preview as a 2x2 grid: two
// half-width vertical splits of two panes each.
func gridPanes(editors []swing.Role) []Pane {
	return []Pane{
		splitPane(Vertical, 0.5,
			editorPane(editors[0], 0.5),
			editorPane(editors[1], 0.5)),
		splitPane(Vertical, 0.5,
			editorPane(editors[2], 0.5),
			previewPane(0.5)),
	}
}

// stackedTriplePanes arranges three editors without a grid: a vertical pair
// plus one full-height pane, split two-thirds/one-third by editor count,
// with the editor area and the preview each taking half the total width.
func stackedTriplePanes(editors []swing.Role) []Pane {
	return []Pane{
		splitPane(Horizontal, 0.5,
			Pane{
				Kind:        PaneSplit,
				Orientation: Vertical,
				Weight:      2.0 / 3.0,
				Children: []Pane{
					editorPane(editors[0], 0.5),
					editorPane(editors[1], 0.5),
				},
			},
			editorPane(editors[2], 1.0/3.0)),
		previewPane(0.5),
	}
}

func editorPane(role swing.Role, weight float64) Pane {
	return Pane{Kind: PaneEditor, Role: role, Weight: weight}
}

func previewPane(weight float64) Pane {
	return Pane{Kind: PanePreview, Weight: weight}
}

func splitPane(o Orientation, weight float64, children ...Pane) Pane {
	return Pane{Kind: PaneSplit, Orientation: o, Weight: weight, Children: children}
}

func reverse(panes []Pane) {
	for i, j := 0, len(panes)-1; i < j; i, j = i+1, j-1 {
		panes[i], panes[j] = panes[j], panes[i]
	}
}
