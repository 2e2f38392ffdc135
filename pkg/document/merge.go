package document

import "fmt"

// CombineFunc merges a freshly fetched document with an existing one.
type CombineFunc func(fresh, existing Document) (Document, error)

// AppendList returns a CombineFunc that places the items of fresh[field] after
// the items of existing[field]. Every other top-level field is taken from fresh.
func AppendList(field string) CombineFunc {
	return func(fresh, existing Document) (Document, error) {
		return combineList(field, fresh, existing, false)
	}
}

// PrependList is AppendList with the fresh items placed first.
func PrependList(field string) CombineFunc {
	return func(fresh, existing Document) (Document, error) {
		return combineList(field, fresh, existing, true)
	}
}

func combineList(field string, fresh, existing Document, freshFirst bool) (Document, error) {
	freshItems, err := listField(fresh, field)
	if err != nil {
		return nil, fmt.Errorf("fresh document: %w", err)
	}
	existingItems, err := listField(existing, field)
	if err != nil {
		return nil, fmt.Errorf("existing document: %w", err)
	}

	combined := make([]any, 0, len(freshItems)+len(existingItems))
	if freshFirst {
		combined = append(combined, freshItems...)
		combined = append(combined, existingItems...)
	} else {
		combined = append(combined, existingItems...)
		combined = append(combined, freshItems...)
	}

	out := fresh.Clone()
	if out == nil {
		out = Document{}
	}
	out[field] = combined
	return out, nil
}

// listField returns doc[field] as a list. A missing field is an empty list.
func listField(doc Document, field string) ([]any, error) {
	raw, ok := doc[field]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("field %q is %T, not a list", field, raw)
	}
	return cloneValue(items).([]any), nil
}
