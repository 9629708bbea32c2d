package autosave

// Handles returns the number of per-note handles held.
func (s *Scheduler) Handles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}
