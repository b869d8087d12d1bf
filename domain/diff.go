package domain

// AssignmentDiff partitions an assignee-set change. It is transient state,
// computed once per mutation that touches AssignedTo and never persisted.
type AssignmentDiff struct {
	Added    []string
	Removed  []string
	Retained []string
}

// DiffAssignees partitions the wholesale replacement of oldAssignees by
// newAssignees. Added preserves the order of newAssignees; Removed and
// Retained preserve the order of oldAssignees, so the result is deterministic
// for a given pair of inputs. DiffAssignees(s, s) yields empty Added and
// Removed for any s.
func DiffAssignees(oldAssignees, newAssignees []string) AssignmentDiff {
	oldSet := make(map[string]struct{}, len(oldAssignees))
	for _, id := range oldAssignees {
		oldSet[id] = struct{}{}
	}
	newSet := make(map[string]struct{}, len(newAssignees))
	for _, id := range newAssignees {
		newSet[id] = struct{}{}
	}

	var d AssignmentDiff
	for _, id := range newAssignees {
		if _, ok := oldSet[id]; !ok {
			d.Added = append(d.Added, id)
		}
	}
	for _, id := range oldAssignees {
		if _, ok := newSet[id]; ok {
			d.Retained = append(d.Retained, id)
		} else {
			d.Removed = append(d.Removed, id)
		}
	}
	return d
}
