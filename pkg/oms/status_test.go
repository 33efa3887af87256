package oms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTerminal(t *testing.T) {
	terminal := []Status{StatusCancelled, StatusReplaced, StatusFailed, StatusFilled}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), "%s should be terminal", s)
	}
	live := []Status{StatusIndicated, StatusNew, StatusAcked, StatusConfirmed, StatusPartFilled}
	for _, s := range live {
		assert.False(t, s.IsTerminal(), "%s should not be terminal", s)
	}
	assert.False(t, Status(200).IsTerminal())
}

func TestStatusRank(t *testing.T) {
	assert.Less(t, StatusIndicated.Rank(), StatusNew.Rank())
	assert.Less(t, StatusConfirmed.Rank(), StatusPartFilled.Rank())
	assert.Less(t, StatusPartFilled.Rank(), StatusFilled.Rank())
	assert.Equal(t, -1, Status(200).Rank())
}

func TestKindPredicates(t *testing.T) {
	assert.True(t, isCancelKind(KindCancel))
	assert.True(t, isCancelKind(KindModLegCancel))
	assert.False(t, isCancelKind(KindModify))
	assert.False(t, isCancelKind(KindNew))

	assert.True(t, isNewKind(KindNew))
	assert.True(t, isNewKind(KindModLegNew))
	assert.False(t, isNewKind(KindModify))
	assert.False(t, isNewKind(KindCancel))
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "Confirmed", StatusConfirmed.String())
	assert.Equal(t, "Cancel", KindCancel.String())
	assert.Equal(t, "Limit", OrderLimit.String())
	assert.Equal(t, "GTC", TIFGoodTillCancel.String())
	assert.Equal(t, "INVALID", Status(200).String())
}
