// Package jobs keeps the state machine of every submitted job.
package jobs

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"montage-orchestrator/internal/ledger"
)

var (
	// ErrJobNotFound is returned when no record exists for a job id.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidTransition is returned when an update would move a job
	// backwards or out of a terminal state.
	ErrInvalidTransition = errors.New("invalid job status transition")
)

// Repository defines the concurrency-safe contract for reading and replacing
// job records.
type Repository interface {
	// Create stores a new queued job for owner and returns it.
	Create(owner string, tier ledger.Tier) Job

	// Get returns a snapshot of the job. The ok return is false if the job
	// does not exist.
	Get(id string) (job Job, ok bool)

	// Update applies mutate to a copy of the current record and stores the
	// result as a whole. Status must move forward, progress never decreases,
	// and terminal states force progress to 1.
	Update(id string, mutate func(Job) Job) (Job, error)

	// Sweep deletes jobs whose retention expired at or before now and returns
	// their ids.
	Sweep(now time.Time) []string

	// ActiveJobCount returns the number of jobs that are not terminal.
	// Used for metrics.
	ActiveJobCount() int
}

// InMemoryRepository is a concurrency-safe in-memory implementation of Repository.
type InMemoryRepository struct {
	mu    sync.RWMutex
	store Store
	now   func() time.Time
}

// NewInMemoryRepository constructs a new repository with a default in-memory store.
func NewInMemoryRepository() *InMemoryRepository {
	return NewInMemoryRepositoryWithStore(NewInMemoryStore())
}

// NewInMemoryRepositoryWithStore constructs a repository that uses the given Store.
func NewInMemoryRepositoryWithStore(store Store) *InMemoryRepository {
	return &InMemoryRepository{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Create implements Repository.Create.
func (r *InMemoryRepository) Create(owner string, tier ledger.Tier) Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	job := Job{
		ID:         uuid.New().String(),
		OwnerEmail: owner,
		Tier:       tier,
		Status:     StatusQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.store.SetJob(job)
	return job.clone()
}

// Get implements Repository.Get.
func (r *InMemoryRepository) Get(id string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.store.GetJob(id)
	if !ok {
		return Job{}, false
	}
	return job.clone(), true
}

// Update implements Repository.Update.
func (r *InMemoryRepository) Update(id string, mutate func(Job) Job) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.store.GetJob(id)
	if !ok {
		return Job{}, fmt.Errorf("update %s: %w", id, ErrJobNotFound)
	}

	updated := mutate(current.clone())
	// identity and ownership are fixed at creation
	updated.ID = current.ID
	updated.OwnerEmail = current.OwnerEmail
	updated.CreatedAt = current.CreatedAt

	if !canMove(current.Status, updated.Status) {
		return current.clone(), fmt.Errorf("update %s from %s to %s: %w", id, current.Status, updated.Status, ErrInvalidTransition)
	}
	updated.Progress = max(current.Progress, min(1, max(0, updated.Progress)))
	if updated.Status.Terminal() {
		updated.Progress = 1
	}
	updated.UpdatedAt = r.now()

	r.store.SetJob(updated.clone())
	return updated, nil
}

// Sweep implements Repository.Sweep.
func (r *InMemoryRepository) Sweep(now time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	for _, id := range r.store.ListJobIDs() {
		job, ok := r.store.GetJob(id)
		if !ok || job.RetentionExpiresAt == nil || job.RetentionExpiresAt.After(now) {
			continue
		}
		r.store.DeleteJob(id)
		removed = append(removed, id)
	}
	sort.Strings(removed)
	return removed
}

// ActiveJobCount implements Repository.ActiveJobCount.
func (r *InMemoryRepository) ActiveJobCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, id := range r.store.ListJobIDs() {
		if job, ok := r.store.GetJob(id); ok && !job.Status.Terminal() {
			n++
		}
	}
	return n
}
