package roster

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tour-backoffice/internal/model"
)

func res(id string, people uint32, status model.ReservationStatus) model.Reservation {
	return model.Reservation{ID: id, ProductID: "P", TourDate: "2026-05-01", TotalPeople: people, Status: status}
}

func tour(id string, ids ...string) model.TourInstance {
	return model.TourInstance{ID: id, ProductID: "P", TourDate: "2026-05-01", ReservationIDs: model.NewReservationSet(ids...)}
}

func ids(rs []model.Reservation) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

func samplePool() []model.Reservation {
	return []model.Reservation{
		res("R1", 2, model.StatusConfirmed),
		res("R2", 3, model.StatusRecruiting),
		res("R3", 4, model.StatusCancelled),
		res("R4", 1, model.StatusPending),
		res("R5", 5, model.StatusConfirmed),
		res("R6", 2, model.StatusCompleted),
	}
}

func TestAssignedTo_FiltersByStatus(t *testing.T) {
	a := tour("A", "R1", "R3", "R4", "R6", "ghost")
	assert.Equal(t, []string{"R1"}, ids(AssignedTo(a, samplePool())))
}

func TestAssignedElsewhere_TagsOwner(t *testing.T) {
	a := tour("A", "R1")
	b := tour("B", "R2", "R3")
	c := tour("C", "R5")
	got := AssignedElsewhere(a, []model.TourInstance{a, b, c}, samplePool())
	require.Len(t, got, 2)
	assert.Equal(t, "R2", got[0].Reservation.ID)
	assert.Equal(t, "B", got[0].TourID)
	assert.Equal(t, "R5", got[1].Reservation.ID)
	assert.Equal(t, "C", got[1].TourID)
}

func TestPending_IgnoresStatus(t *testing.T) {
	a := tour("A", "R1")
	b := tour("B", "R2")
	got := ids(Pending([]model.TourInstance{a, b}, samplePool()))
	assert.Equal(t, []string{"R3", "R4", "R5", "R6"}, got)
}

func TestAssign(t *testing.T) {
	a := tour("A", "R1")
	b := tour("B")
	siblings := []model.TourInstance{a, b}

	_, err := Assign(b, siblings, "R1")
	var already *AlreadyAssignedError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, "A", already.TourID)

	same, err := Assign(a, siblings, "R1")
	require.NoError(t, err)
	assert.Equal(t, []string{"R1"}, same.ReservationIDs.IDs())

	next, err := Assign(b, siblings, "R2")
	require.NoError(t, err)
	assert.True(t, next.ReservationIDs.Has("R2"))
	assert.False(t, b.ReservationIDs.Has("R2"), "input snapshot must not change")
}

func TestAssignAll_IsAllOrNothing(t *testing.T) {
	a := tour("A", "R5")
	b := tour("B")
	siblings := []model.TourInstance{a, b}

	got, err := AssignAll(b, siblings, []string{"R1", "R5", "R2"})
	assert.True(t, IsAlreadyAssigned(err))
	assert.Equal(t, 0, got.ReservationIDs.Len())

	got, err = AssignAll(b, siblings, []string{"R2", "R1", "R2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"R1", "R2"}, got.ReservationIDs.IDs())
}

func TestUnassign(t *testing.T) {
	a := tour("A", "R1", "R2")
	assert.Equal(t, []string{"R2"}, Unassign(a, "R1").ReservationIDs.IDs())
	assert.Equal(t, []string{"R1", "R2"}, Unassign(a, "nope").ReservationIDs.IDs())
	assert.Equal(t, 0, UnassignAll(a).ReservationIDs.Len())
}

func TestCheckPartition(t *testing.T) {
	require.NoError(t, CheckPartition([]model.TourInstance{tour("A", "R1"), tour("B", "R2")}))

	err := CheckPartition([]model.TourInstance{tour("A", "R1"), tour("B", "R1")})
	var iv *InvariantViolation
	require.ErrorAs(t, err, &iv)
	assert.Equal(t, "R1", iv.ReservationID)
	assert.Equal(t, []string{"A", "B"}, iv.TourIDs)
}

func TestCapacity(t *testing.T) {
	pool := samplePool()
	a := tour("A", "R1", "R3")
	b := tour("B", "R2")
	c := tour("C")
	siblings := []model.TourInstance{a, b, c}

	assert.Equal(t, uint64(2), AssignedCount(a, pool))
	assert.Equal(t, uint64(3), AssignedCount(b, pool))
	assert.Equal(t, uint64(10), TotalCount(pool))
	assert.Equal(t, int64(5), UnassignedCount(siblings, pool))
	assert.Equal(t, uint64(5), PendingHeadcount(siblings, pool))

	sum := Summarize(siblings, pool)
	require.Len(t, sum.Tours, 3)
	assert.Equal(t, TourCapacity{TourID: "C", Assigned: 0}, sum.Tours[2])
	assert.Equal(t, uint64(10), sum.Total)
}

// Random assign/unassign/reassign sequences must keep both the partition
// and the capacity equality.
func TestRandomEdits_KeepPartitionAndCapacity(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	pool := samplePool()
	siblings := []model.TourInstance{tour("A"), tour("B"), tour("C")}

	for step := 0; step < 500; step++ {
		i := rng.Intn(len(siblings))
		id := pool[rng.Intn(len(pool))].ID
		switch rng.Intn(4) {
		case 0:
			if next, err := Assign(siblings[i], siblings, id); err == nil {
				siblings[i] = next
			}
		case 1:
			siblings[i] = Unassign(siblings[i], id)
		case 2:
			j := rng.Intn(len(siblings))
			for k := range siblings {
				if k != j {
					siblings[k] = Unassign(siblings[k], id)
				}
			}
			next, err := Assign(siblings[j], siblings, id)
			require.NoError(t, err)
			siblings[j] = next
		case 3:
			siblings[i] = UnassignAll(siblings[i])
		}

		require.NoError(t, CheckPartition(siblings), "step %d", step)
		var assigned uint64
		for _, s := range siblings {
			assigned += AssignedCount(s, pool)
		}
		require.Equal(t, TotalCount(pool), assigned+PendingHeadcount(siblings, pool), "step %d", step)
		require.Equal(t, int64(PendingHeadcount(siblings, pool)), UnassignedCount(siblings, pool), "step %d", step)
	}
}
