package jobs

// Store is the persistence abstraction for job records.
// The Repository does all locking; a Store only needs to hold values.
type Store interface {
	GetJob(id string) (Job, bool)
	SetJob(j Job)
	DeleteJob(id string)
	ListJobIDs() []string
}

// InMemoryStore is an in-memory implementation of Store. Jobs are stored by
// value so no caller can reach a stored record through a pointer.
type InMemoryStore struct {
	jobs map[string]Job
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		jobs: make(map[string]Job),
	}
}

// GetJob implements Store.GetJob.
func (s *InMemoryStore) GetJob(id string) (Job, bool) {
	j, ok := s.jobs[id]
	return j, ok
}

// SetJob implements Store.SetJob.
func (s *InMemoryStore) SetJob(j Job) {
	s.jobs[j.ID] = j
}

// DeleteJob implements Store.DeleteJob.
func (s *InMemoryStore) DeleteJob(id string) {
	delete(s.jobs, id)
}

// ListJobIDs implements Store.ListJobIDs.
func (s *InMemoryStore) ListJobIDs() []string {
	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	return ids
}
