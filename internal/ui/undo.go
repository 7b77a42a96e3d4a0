package ui

import (
	"fmt"

	"scenic/internal/model"
)

type undoAction struct {
	label string
	undo  func() error
	redo  func() error
}

func (m *Model) pushUndoAction(action undoAction) {
	m.undoStack = append(m.undoStack, action)
	m.redoStack = nil
}

// buildRemoveAction records a library removal so it can be reverted.
// Re-adding appends the road at the end of the library.
func (m *Model) buildRemoveAction(road model.Road) undoAction {
	orch := m.orch
	return undoAction{
		label: fmt.Sprintf("removed %q", road.Name),
		undo: func() error {
			return orch.SaveRoad(road)
		},
		redo: func() error {
			return orch.RemoveRoad(road)
		},
	}
}

func (m *Model) undo() {
	if len(m.undoStack) == 0 {
		m.info = "Nothing to undo"
		return
	}
	action := m.undoStack[len(m.undoStack)-1]
	m.undoStack = m.undoStack[:len(m.undoStack)-1]
	m.applyUndoResult(action, action.undo(), "undo")
}

func (m *Model) redo() {
	if len(m.redoStack) == 0 {
		m.info = "Nothing to redo"
		return
	}
	action := m.redoStack[len(m.redoStack)-1]
	m.redoStack = m.redoStack[:len(m.redoStack)-1]
	m.applyUndoResult(action, action.redo(), "redo")
}

func (m *Model) applyUndoResult(action undoAction, err error, direction string) {
	if err != nil {
		m.error = fmt.Sprintf("%s failed: %v", direction, err)
		m.info = ""
		// Keep the action so the user can try again.
		if direction == "undo" {
			m.undoStack = append(m.undoStack, action)
		} else {
			m.redoStack = append(m.redoStack, action)
		}
		return
	}

	if direction == "undo" {
		m.redoStack = append(m.redoStack, action)
		m.info = "Undid: " + action.label
	} else {
		m.undoStack = append(m.undoStack, action)
		m.info = "Redid: " + action.label
	}
	m.error = ""
	m.clampCursor()
}
