package alertstore

import (
	"fmt"
	"sync"
	"testing"

	"SOSDesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alert(id, sender string) models.Alert {
	return models.Alert{LocalID: id, SenderID: sender, Status: models.StatusActive}
}

func TestInsertKeepsArrivalOrder(t *testing.T) {
	s := New()
	s.Insert(alert("a", "u1"))
	s.Insert(alert("b", "u1"))
	s.Insert(alert("c", "u2"))

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{snap[0].LocalID, snap[1].LocalID, snap[2].LocalID})
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New()
	s.Insert(alert("a", "u1"))

	snap := s.Snapshot()
	snap[0].Status = models.StatusResolving
	s.Insert(alert("b", "u1"))

	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, models.StatusActive, got.Status)
	assert.Len(t, snap, 1)
}

func TestBeginResolveTransitions(t *testing.T) {
	s := New()
	s.Insert(alert("a", "u1"))

	got, err := s.BeginResolve("a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolving, got.Status)

	_, err = s.BeginResolve("a")
	assert.ErrorIs(t, err, ErrAlreadyResolving)

	_, err = s.BeginResolve("missing")
	assert.ErrorIs(t, err, ErrAlertNotFound)
}

func TestRevertOnlyAffectsResolving(t *testing.T) {
	s := New()
	s.Insert(alert("a", "u1"))

	assert.False(t, s.Revert("a"))
	assert.False(t, s.Revert("missing"))

	_, err := s.BeginResolve("a")
	require.NoError(t, err)
	assert.True(t, s.Revert("a"))

	got, _ := s.Get("a")
	assert.Equal(t, models.StatusActive, got.Status)
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := New()
	s.Insert(alert("a", "u1"))
	s.Insert(alert("b", "u1"))

	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
	assert.Equal(t, 1, s.Len())
}

func TestResetRejectsLateInserts(t *testing.T) {
	s := New()
	gen := s.Generation()
	s.Insert(alert("a", "u1"))

	s.Reset()

	err := s.InsertIfGeneration(gen, alert("late", "u1"))
	assert.ErrorIs(t, err, ErrStaleGeneration)
	assert.Equal(t, 0, s.Len())

	require.NoError(t, s.InsertIfGeneration(s.Generation(), alert("fresh", "u1")))
	assert.Equal(t, 1, s.Len())
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	s := New()
	var seen [][]models.Alert
	unsubscribe := s.Subscribe(func(alerts []models.Alert) {
		seen = append(seen, alerts)
	})

	s.Insert(alert("a", "u1"))
	s.Remove("a")
	unsubscribe()
	s.Insert(alert("b", "u1"))

	require.Len(t, seen, 2)
	assert.Len(t, seen[0], 1)
	assert.Len(t, seen[1], 0)
}

func TestConcurrentBeginResolveHasOneWinner(t *testing.T) {
	s := New()
	s.Insert(alert("a", "u1"))

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.BeginResolve("a"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestSnapshotDuringConcurrentInserts(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.Insert(alert(fmt.Sprintf("a%d", i), "u1"))
		}(i)
		go func() {
			defer wg.Done()
			for range s.Snapshot() {
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, s.Len())
}

func TestAttachPatientReplacesInPlace(t *testing.T) {
	s := New()
	gen := s.Generation()
	s.Insert(alert("a", "u1"))
	s.Insert(alert("b", "u2"))
	_, err := s.BeginResolve("a")
	require.NoError(t, err)

	before := s.Snapshot()
	updated, err := s.AttachPatient(gen, "a", &models.Patient{Name: "Asha"})
	require.NoError(t, err)
	assert.Equal(t, "Asha", updated.Patient.Name)
	assert.Equal(t, models.StatusResolving, updated.Status)
	assert.Nil(t, before[0].Patient)

	snap := s.Snapshot()
	assert.Equal(t, []string{"a", "b"}, []string{snap[0].LocalID, snap[1].LocalID})
	assert.Equal(t, "Asha", snap[0].Patient.Name)
}

func TestAttachPatientMissingOrStale(t *testing.T) {
	s := New()
	gen := s.Generation()
	s.Insert(alert("a", "u1"))

	_, err := s.AttachPatient(gen, "zzz", &models.Patient{})
	assert.ErrorIs(t, err, ErrAlertNotFound)

	s.Reset()
	s.Insert(alert("a", "u1"))
	_, err = s.AttachPatient(gen, "a", &models.Patient{Name: "late"})
	assert.ErrorIs(t, err, ErrStaleGeneration)
	a, ok := s.Get("a")
	require.True(t, ok)
	assert.Nil(t, a.Patient)
}

func TestListenersEndOnLatestState(t *testing.T) {
	s := New()
	var mu sync.Mutex
	var sizes []int
	s.Subscribe(func(alerts []models.Alert) {
		mu.Lock()
		sizes = append(sizes, len(alerts))
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Insert(alert(fmt.Sprintf("a%d", i), "u1"))
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, sizes)
	for i := 1; i < len(sizes); i++ {
		assert.Greater(t, sizes[i], sizes[i-1], "snapshots delivered out of order")
	}
	assert.Equal(t, 64, sizes[len(sizes)-1])
}
