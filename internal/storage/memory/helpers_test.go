package memory

func (s *Store) itemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) pointCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}
