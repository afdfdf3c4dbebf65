package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-user-directory/internal/domain/entity"
	"github.com/oksasatya/go-user-directory/pkg/apperror"
)

func steppingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(step)
		return cur
	}
}

func newUser(i int) *entity.User {
	return &entity.User{
		Name:    "User",
		Email:   fmt.Sprintf("user%d@example.com", i),
		Address: "1 Test Road",
	}
}

func TestCreateAssignsIdentityAndTimestamps(t *testing.T) {
	repo := NewUserRepository()
	u := newUser(1)
	require.NoError(t, repo.Create(context.Background(), u))

	assert.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())
	assert.Equal(t, u.CreatedAt, u.UpdatedAt)

	got, err := repo.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, *u, *got)
}

func TestCreateDuplicateEmailIsConflict(t *testing.T) {
	repo := NewUserRepository()
	require.NoError(t, repo.Create(context.Background(), newUser(1)))

	err := repo.Create(context.Background(), newUser(1))
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	n, _ := repo.Count(context.Background())
	assert.EqualValues(t, 1, n)
}

func TestConcurrentCreatesSameEmailHaveOneWinner(t *testing.T) {
	repo := NewUserRepository()
	const workers = 16

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- repo.Create(context.Background(), newUser(7))
		}()
	}
	wg.Wait()
	close(results)

	var ok, conflicts int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case apperror.Is(err, apperror.KindConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, conflicts)
}

func TestListNewestFirstWithOffsetLimit(t *testing.T) {
	repo := NewUserRepository().WithClock(steppingClock(time.Unix(0, 0), time.Second))
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(context.Background(), newUser(i)))
	}

	page, err := repo.List(context.Background(), 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "user4@example.com", page[0].Email)
	assert.Equal(t, "user3@example.com", page[1].Email)

	page, err = repo.List(context.Background(), 4, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "user0@example.com", page[0].Email)

	page, err = repo.List(context.Background(), 10, 2)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestListBreaksTimestampTiesByInsertion(t *testing.T) {
	fixed := time.Unix(100, 0)
	repo := NewUserRepository().WithClock(func() time.Time { return fixed })
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(context.Background(), newUser(i)))
	}
	page, err := repo.List(context.Background(), 0, 3)
	require.NoError(t, err)
	assert.Equal(t, "user2@example.com", page[0].Email)
	assert.Equal(t, "user0@example.com", page[2].Email)
}

func TestUpdateMovesEmailIndexAndRefreshesTimestamp(t *testing.T) {
	repo := NewUserRepository().WithClock(steppingClock(time.Unix(0, 0), time.Minute))
	u := newUser(1)
	require.NoError(t, repo.Create(context.Background(), u))
	created := u.CreatedAt

	u.Email = "moved@example.com"
	require.NoError(t, repo.Update(context.Background(), u))
	assert.True(t, u.UpdatedAt.After(created))
	assert.Equal(t, created, u.CreatedAt)

	_, err := repo.GetByEmail(context.Background(), "user1@example.com")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	got, err := repo.GetByEmail(context.Background(), "moved@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestUpdateToTakenEmailIsConflict(t *testing.T) {
	repo := NewUserRepository()
	a, b := newUser(1), newUser(2)
	require.NoError(t, repo.Create(context.Background(), a))
	require.NoError(t, repo.Create(context.Background(), b))

	b.Email = a.Email
	err := repo.Update(context.Background(), b)
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	got, _ := repo.GetByID(context.Background(), b.ID)
	assert.Equal(t, "user2@example.com", got.Email)
}

func TestUpdateNeverMovesUpdatedAtBeforeCreatedAt(t *testing.T) {
	times := []time.Time{time.Unix(500, 0), time.Unix(100, 0)}
	i := 0
	repo := NewUserRepository().WithClock(func() time.Time {
		ts := times[i]
		i++
		return ts
	})
	u := newUser(1)
	require.NoError(t, repo.Create(context.Background(), u))
	require.NoError(t, repo.Update(context.Background(), u))
	assert.False(t, u.UpdatedAt.Before(u.CreatedAt))
}

func TestDelete(t *testing.T) {
	repo := NewUserRepository()
	u := newUser(1)
	require.NoError(t, repo.Create(context.Background(), u))
	require.NoError(t, repo.Delete(context.Background(), u.ID))

	_, err := repo.GetByID(context.Background(), u.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	assert.True(t, apperror.Is(repo.Delete(context.Background(), u.ID), apperror.KindNotFound))

	// email is free again
	require.NoError(t, repo.Create(context.Background(), newUser(1)))
}
