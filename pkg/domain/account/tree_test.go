package account_test

import (
	"testing"

	"github.com/amirasaad/ledger/pkg/domain"
	domainaccount "github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTree(t *testing.T) {
	t.Parallel()
	holderID := uuid.New()
	root := newLeaf(t, holderID, "root")
	mid := newLeaf(t, holderID, "root:mid")
	leafA := newLeaf(t, holderID, "root:mid:a")
	leafB := newLeaf(t, holderID, "root:mid:b")
	other := newLeaf(t, holderID, "root:other")
	mid.ParentID = &root.ID
	other.ParentID = &root.ID
	leafA.ParentID = &mid.ID
	leafB.ParentID = &mid.ID

	tree := domainaccount.NewTree([]*domainaccount.Account{root, mid, leafA, leafB, other})

	anc, err := tree.Ancestors(leafA.ID)
	require.NoError(t, err)
	require.Len(t, anc, 2)
	assert.Equal(t, mid.ID, anc[0].ID, "nearest ancestor first")
	assert.Equal(t, root.ID, anc[1].ID)

	lineage, err := tree.Lineage(leafB.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{leafB.ID, mid.ID, root.ID}, lineage)

	sub := tree.Subtree(mid.ID)
	assert.Len(t, sub, 3)
	assert.True(t, sub[leafA.ID] && sub[leafB.ID] && sub[mid.ID])
	assert.False(t, sub[root.ID])

	sib := tree.Siblings(leafA.ID)
	require.Len(t, sib, 1)
	assert.Equal(t, leafB.ID, sib[0].ID)
	assert.Empty(t, tree.Siblings(root.ID))

	roots := tree.Roots(holderID)
	require.Len(t, roots, 1)
	assert.Equal(t, root.ID, roots[0].ID)
}

func TestTree_DetectsCycles(t *testing.T) {
	t.Parallel()
	holderID := uuid.New()
	a := newLeaf(t, holderID, "a")
	b := newLeaf(t, holderID, "b")
	a.ParentID = &b.ID
	b.ParentID = &a.ID

	_, err := domainaccount.NewTree([]*domainaccount.Account{a, b}).Ancestors(a.ID)
	require.ErrorIs(t, err, domainaccount.ErrCycle)
	assert.ErrorIs(t, err, domain.ErrInvalidAccountOperation)
}
