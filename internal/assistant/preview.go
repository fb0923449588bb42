package assistant

import "strconv"

// newAddSelection returns a selection map with every item index
// defaulted to selected.
func newAddSelection(items []AddPreviewItem) map[int]bool {
	sel := make(map[int]bool, len(items))
	for i := range items {
		sel[i] = true
	}
	return sel
}

// newDeleteSelection returns a selection map with every group key
// defaulted to selected.
func newDeleteSelection(groups []DeletePreviewGroup) map[string]bool {
	sel := make(map[string]bool, len(groups))
	for _, g := range groups {
		sel[g.GroupKey] = true
	}
	return sel
}

// selectedAddCount counts selected entries intersected with the items
// actually present; stale indices left over from a previous preview do
// not count.
func selectedAddCount(preview *AddPreview, sel map[int]bool) int {
	if preview == nil {
		return 0
	}
	n := 0
	for i := range preview.Items {
		if sel[i] {
			n++
		}
	}
	return n
}

// selectedDeleteCount counts selected entries intersected with the
// groups actually present.
func selectedDeleteCount(preview *DeletePreview, sel map[string]bool) int {
	if preview == nil {
		return 0
	}
	n := 0
	for _, g := range preview.Groups {
		if sel[g.GroupKey] {
			n++
		}
	}
	return n
}

// selectedAddItems returns the items whose index is selected, in order.
func selectedAddItems(preview *AddPreview, sel map[int]bool) []AddPreviewItem {
	if preview == nil {
		return nil
	}
	var out []AddPreviewItem
	for i, item := range preview.Items {
		if sel[i] {
			out = append(out, item)
		}
	}
	return out
}

// selectedDeleteIDs flattens the selected groups' ids and splits them by
// id type: numeric local ids and string external ids.
func selectedDeleteIDs(preview *DeletePreview, sel map[string]bool) (numeric []int64, external []string) {
	if preview == nil {
		return nil, nil
	}
	for _, g := range preview.Groups {
		if !sel[g.GroupKey] {
			continue
		}
		for _, id := range g.IDs {
			if n, err := strconv.ParseInt(id, 10, 64); err == nil {
				numeric = append(numeric, n)
			} else {
				external = append(external, id)
			}
		}
	}
	return numeric, external
}
