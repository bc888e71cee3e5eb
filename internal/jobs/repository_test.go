package jobs

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"montage-orchestrator/internal/ledger"
)

func newTestRepo(now *time.Time) *InMemoryRepository {
	repo := NewInMemoryRepository()
	repo.now = func() time.Time { return *now }
	return repo
}

func TestInMemoryRepository_Create(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	repo := newTestRepo(&now)

	job := repo.Create("ann@creator.com", ledger.TierCreator)
	_, err := uuid.Parse(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, job.Status)
	assert.Equal(t, 0.0, job.Progress)
	assert.Equal(t, now, job.CreatedAt)
	assert.Equal(t, ledger.TierCreator, job.Tier)

	got, ok := repo.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, job, got)

	_, ok = repo.Get("missing")
	assert.False(t, ok)
}

func TestInMemoryRepository_Update_lifecycle(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	repo := newTestRepo(&now)
	job := repo.Create("a@b.c", ledger.TierFree)

	t.Run("queued_to_running", func(t *testing.T) {
		now = now.Add(time.Second)
		got, err := repo.Update(job.ID, func(j Job) Job {
			j.Status = StatusRunning
			j.Progress = 0.3
			j.Message = "Plan"
			return j
		})
		require.NoError(t, err)
		assert.Equal(t, StatusRunning, got.Status)
		assert.Equal(t, 0.3, got.Progress)
		assert.Equal(t, now, got.UpdatedAt)
		assert.Equal(t, job.CreatedAt, got.CreatedAt)
	})

	t.Run("progress_never_decreases", func(t *testing.T) {
		got, err := repo.Update(job.ID, func(j Job) Job {
			j.Progress = 0.1
			j.Message = "Analyze"
			return j
		})
		require.NoError(t, err)
		assert.Equal(t, 0.3, got.Progress)
		assert.Equal(t, "Analyze", got.Message)
	})

	t.Run("progress_clamped_to_one", func(t *testing.T) {
		got, err := repo.Update(job.ID, func(j Job) Job {
			j.Progress = 7
			return j
		})
		require.NoError(t, err)
		assert.Equal(t, 1.0, got.Progress)
	})

	t.Run("identity_is_fixed", func(t *testing.T) {
		got, err := repo.Update(job.ID, func(j Job) Job {
			j.ID = "other"
			j.OwnerEmail = "mallory@x.y"
			return j
		})
		require.NoError(t, err)
		assert.Equal(t, job.ID, got.ID)
		assert.Equal(t, "a@b.c", got.OwnerEmail)
	})

	t.Run("completed_is_terminal", func(t *testing.T) {
		_, err := repo.Update(job.ID, func(j Job) Job {
			j.Status = StatusCompleted
			return j
		})
		require.NoError(t, err)

		_, err = repo.Update(job.ID, func(j Job) Job {
			j.Status = StatusFailed
			return j
		})
		require.ErrorIs(t, err, ErrInvalidTransition)

		_, err = repo.Update(job.ID, func(j Job) Job {
			j.Status = StatusRunning
			return j
		})
		require.ErrorIs(t, err, ErrInvalidTransition)

		got, _ := repo.Get(job.ID)
		assert.Equal(t, StatusCompleted, got.Status)
	})
}

func TestInMemoryRepository_Update_failure_forces_full_progress(t *testing.T) {
	now := time.Now().UTC()
	repo := newTestRepo(&now)
	job := repo.Create("a@b.c", ledger.TierFree)

	got, err := repo.Update(job.ID, func(j Job) Job {
		j.Status = StatusFailed
		j.Message = "entitlement"
		return j
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Progress)

	_, err = repo.Update(job.ID, func(j Job) Job {
		j.Status = StatusQueued
		return j
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestInMemoryRepository_Update_errors(t *testing.T) {
	repo := NewInMemoryRepository()

	_, err := repo.Update("missing", func(j Job) Job { return j })
	assert.ErrorIs(t, err, ErrJobNotFound)

	job := repo.Create("a@b.c", ledger.TierFree)
	_, err = repo.Update(job.ID, func(j Job) Job {
		j.Status = StatusCompleted
		return j
	})
	assert.ErrorIs(t, err, ErrInvalidTransition, "queued cannot skip running")
}

func TestInMemoryRepository_snapshots_are_isolated(t *testing.T) {
	repo := NewInMemoryRepository()
	job := repo.Create("a@b.c", ledger.TierPro)
	expires := time.Now().Add(time.Hour)

	_, err := repo.Update(job.ID, func(j Job) Job {
		j.Status = StatusRunning
		j.Report = json.RawMessage(`{"status":"passed"}`)
		j.RetentionExpiresAt = &expires
		return j
	})
	require.NoError(t, err)

	first, _ := repo.Get(job.ID)
	first.Report[2] = 'X'
	*first.RetentionExpiresAt = time.Time{}

	second, _ := repo.Get(job.ID)
	assert.JSONEq(t, `{"status":"passed"}`, string(second.Report))
	assert.Equal(t, expires, *second.RetentionExpiresAt)
}

func TestInMemoryRepository_Sweep(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := newTestRepo(&now)

	expire := func(id string, at time.Time) {
		_, err := repo.Update(id, func(j Job) Job {
			j.Status = StatusRunning
			j.RetentionExpiresAt = &at
			return j
		})
		require.NoError(t, err)
	}

	old := repo.Create("a@b.c", ledger.TierFree)
	exact := repo.Create("a@b.c", ledger.TierFree)
	fresh := repo.Create("a@b.c", ledger.TierFree)
	pending := repo.Create("a@b.c", ledger.TierFree)
	expire(old.ID, now.Add(-time.Hour))
	expire(exact.ID, now)
	expire(fresh.ID, now.Add(time.Hour))

	removed := repo.Sweep(now)
	assert.ElementsMatch(t, []string{old.ID, exact.ID}, removed)

	_, ok := repo.Get(old.ID)
	assert.False(t, ok)
	_, ok = repo.Get(fresh.ID)
	assert.True(t, ok)
	_, ok = repo.Get(pending.ID)
	assert.True(t, ok, "jobs without retention are never swept")

	assert.Empty(t, repo.Sweep(now))
}

func TestInMemoryRepository_ActiveJobCount(t *testing.T) {
	repo := NewInMemoryRepository()
	a := repo.Create("a@b.c", ledger.TierFree)
	repo.Create("a@b.c", ledger.TierFree)
	assert.Equal(t, 2, repo.ActiveJobCount())

	_, err := repo.Update(a.ID, func(j Job) Job {
		j.Status = StatusFailed
		return j
	})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.ActiveJobCount())
}

func TestInMemoryRepository_concurrent_updates(t *testing.T) {
	repo := NewInMemoryRepository()
	job := repo.Create("a@b.c", ledger.TierPro)
	_, err := repo.Update(job.ID, func(j Job) Job {
		j.Status = StatusRunning
		return j
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(2)
		go func(p float64) {
			defer wg.Done()
			_, err := repo.Update(job.ID, func(j Job) Job {
				j.Progress = p
				j.Message = fmt.Sprintf("step %.2f", p)
				return j
			})
			if err != nil {
				t.Errorf("update: %v", err)
			}
		}(float64(i) / 100)
		go func() {
			defer wg.Done()
			got, ok := repo.Get(job.ID)
			if !ok {
				t.Error("job vanished")
				return
			}
			if got.Progress < 0 || got.Progress > 1 {
				t.Errorf("progress out of range: %v", got.Progress)
			}
		}()
	}
	wg.Wait()

	got, _ := repo.Get(job.ID)
	assert.Equal(t, 1.0, got.Progress, "the largest progress wins regardless of order")
}
