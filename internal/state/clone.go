package state

// Clone returns a deep copy of the document. Lane slices keep their non-nil
// empty form and task records are cloned individually, so no mutation of the
// copy can reach the original. Every operation clones before it edits; the
// original pointer is what callers compare against to detect a no-op.
func (s *State) Clone() *State {
	c := *s
	c.WokenQueue = append([]string{}, s.WokenQueue...)
	c.ReadyQueue = append([]string{}, s.ReadyQueue...)
	c.SnoozedIDs = append([]string{}, s.SnoozedIDs...)
	c.CompletedIDs = append([]string{}, s.CompletedIDs...)
	c.DeletedIDs = append([]string{}, s.DeletedIDs...)
	c.Tasks = make(map[string]*Task, len(s.Tasks))
	for id, t := range s.Tasks {
		c.Tasks[id] = t.Clone()
	}
	return &c
}
