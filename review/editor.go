package review

import (
	"sort"

	"github.com/janpow77/flowinvoice-sub001/model"
)

// FieldEditor tracks edits against the extracted values of a document and
// keeps the set of pending corrections current after every change.
type FieldEditor struct {
	originals   map[string]string
	buffer      map[string]string
	corrections []model.FieldCorrection
}

// NewFieldEditor seeds the edit buffer with the current value of every field.
func NewFieldEditor(fields map[string]model.FieldValue) *FieldEditor {
	e := &FieldEditor{
		originals: make(map[string]string, len(fields)),
		buffer:    make(map[string]string, len(fields)),
	}
	for id, f := range fields {
		text := f.Text()
		e.originals[id] = text
		e.buffer[id] = text
	}
	return e
}

// Set updates the buffer for fieldID and inserts, replaces or removes its
// correction. It returns whether the field is now a correction.
func (e *FieldEditor) Set(fieldID, value string) (bool, error) {
	original, ok := e.originals[fieldID]
	if !ok {
		return false, ErrUnknownField
	}
	e.buffer[fieldID] = value

	idx := e.indexOf(fieldID)
	if original == value {
		if idx >= 0 {
			e.corrections = append(e.corrections[:idx], e.corrections[idx+1:]...)
		}
		return false, nil
	}

	c := model.FieldCorrection{
		FeatureID:      fieldID,
		OriginalValue:  original,
		CorrectedValue: value,
	}
	if idx >= 0 {
		e.corrections[idx] = c
	} else {
		e.corrections = append(e.corrections, c)
	}
	return true, nil
}

// Rebase replaces the originals with fields. Untouched fields follow their
// new value, edited ones keep the buffer, and every correction is re-checked
// against its new original. Fields that disappeared are dropped.
func (e *FieldEditor) Rebase(fields map[string]model.FieldValue) {
	originals := make(map[string]string, len(fields))
	buffer := make(map[string]string, len(fields))
	for id, f := range fields {
		text := f.Text()
		originals[id] = text
		if old, ok := e.originals[id]; ok && e.buffer[id] != old {
			buffer[id] = e.buffer[id]
		} else {
			buffer[id] = text
		}
	}

	corrections := e.corrections[:0]
	for _, c := range e.corrections {
		original, ok := originals[c.FeatureID]
		if !ok || original == buffer[c.FeatureID] {
			continue
		}
		c.OriginalValue = original
		corrections = append(corrections, c)
	}

	e.originals = originals
	e.buffer = buffer
	e.corrections = corrections
}

// Corrections returns a copy of the pending corrections in edit order.
func (e *FieldEditor) Corrections() []model.FieldCorrection {
	out := make([]model.FieldCorrection, len(e.corrections))
	copy(out, e.corrections)
	return out
}

// Buffer returns a copy of the edit buffer.
func (e *FieldEditor) Buffer() map[string]string {
	out := make(map[string]string, len(e.buffer))
	for k, v := range e.buffer {
		out[k] = v
	}
	return out
}

// Changed reports whether fieldID currently differs from its original.
func (e *FieldEditor) Changed(fieldID string) bool {
	return e.indexOf(fieldID) >= 0
}

// Fields returns the editable field ids, sorted.
func (e *FieldEditor) Fields() []string {
	ids := make([]string, 0, len(e.originals))
	for id := range e.originals {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of pending corrections.
func (e *FieldEditor) Len() int {
	return len(e.corrections)
}

func (e *FieldEditor) indexOf(fieldID string) int {
	for i, c := range e.corrections {
		if c.FeatureID == fieldID {
			return i
		}
	}
	return -1
}
