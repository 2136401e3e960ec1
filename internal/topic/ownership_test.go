// Copyright KubeArchive Authors
// SPDX-License-Identifier: Apache-2.0

package topic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/types"
)

func refAt(name string, uid string, t time.Time) KubeRef {
	return KubeRef{Namespace: "default", Name: name, UID: types.UID(uid), CreationTime: t}
}

func TestOwnershipTableSingleClaimantAlwaysWins(t *testing.T) {
	table := NewOwnershipTable()
	ref := refAt("a", "uid-a", time.Now())
	table.Remember("orders", ref)
	assert.NoError(t, table.ValidateSingleManagingResource("orders", ref, false))
}

func TestOwnershipTableOldestWins(t *testing.T) {
	table := NewOwnershipTable()
	base := time.Now()
	older := refAt("a", "uid-a", base)
	newer := refAt("b", "uid-b", base.Add(time.Minute))
	table.Remember("orders", older)
	table.Remember("orders", newer)

	assert.NoError(t, table.ValidateSingleManagingResource("orders", older, false))

	err := table.ValidateSingleManagingResource("orders", newer, false)
	require.Error(t, err)
	var rerr *ReconcileError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, KindResourceConflict, rerr.Kind)
}

func TestOwnershipTableReadyOnlyOverridesTieBreakWhileStillOldest(t *testing.T) {
	table := NewOwnershipTable()
	base := time.Now()
	winner := refAt("winner", "uid-winner", base)
	table.Remember("orders", winner)
	require.NoError(t, table.ValidateSingleManagingResource("orders", winner, true))

	// An older claimant shows up after winner has already converged.
	lateOlder := refAt("late-older", "uid-late", base.Add(-time.Hour))
	table.Remember("orders", lateOlder)

	// winner is no longer the oldest claimant, so Ready=True no longer
	// saves it: the oldest-claimant requirement applies to both success
	// branches.
	err := table.ValidateSingleManagingResource("orders", winner, true)
	require.Error(t, err)
	var rerr *ReconcileError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, KindResourceConflict, rerr.Kind)

	// The late, chronologically-older claimant is now the oldest and wins.
	assert.NoError(t, table.ValidateSingleManagingResource("orders", lateOlder, false))
}

func TestOwnershipTableReadyOverridesStrictAgeTieBreakWhileOldest(t *testing.T) {
	table := NewOwnershipTable()
	base := time.Now()
	oldest := refAt("oldest", "uid-oldest", base)
	table.Remember("orders", oldest)
	require.NoError(t, table.ValidateSingleManagingResource("orders", oldest, true))

	// A claimant with the exact same creation time appears: creation time
	// no longer separates them, so the UID decides ("uid-oldest" sorts
	// before "uid-tie") and oldest, still the oldest claimant, keeps
	// winning.
	tie := refAt("tie", "uid-tie", base)
	table.Remember("orders", tie)

	assert.NoError(t, table.ValidateSingleManagingResource("orders", oldest, true))

	err := table.ValidateSingleManagingResource("orders", tie, false)
	require.Error(t, err)
	var rerr *ReconcileError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, KindResourceConflict, rerr.Kind)
}

func TestOwnershipTableForgetRemovesClaimant(t *testing.T) {
	table := NewOwnershipTable()
	base := time.Now()
	older := refAt("a", "uid-a", base)
	newer := refAt("b", "uid-b", base.Add(time.Minute))
	table.Remember("orders", older)
	table.Remember("orders", newer)

	table.Forget("orders", older)
	assert.NoError(t, table.ValidateSingleManagingResource("orders", newer, false))
}

func TestOwnershipTablePrimeReplacesContents(t *testing.T) {
	table := NewOwnershipTable()
	base := time.Now()
	stale := refAt("stale", "uid-stale", base)
	table.Remember("orders", stale)

	fresh := TopicResource{
		Namespace: "default", Name: "fresh", UID: types.UID("uid-fresh"), CreationTimestamp: base,
		Spec: &TopicSpec{},
	}
	table.Prime([]TopicResource{fresh})

	assert.NoError(t, table.ValidateSingleManagingResource("fresh", fresh.Ref(), false))
	// stale's claim on "orders" was dropped by Prime.
	assert.NoError(t, table.ValidateSingleManagingResource("orders", refAt("other", "uid-other", base), false))
}

func TestOwnershipTableRememberIsIdempotent(t *testing.T) {
	table := NewOwnershipTable()
	ref := refAt("a", "uid-a", time.Now())
	table.Remember("orders", ref)
	table.Remember("orders", ref)
	assert.Len(t, table.claimants("orders"), 1)
}
