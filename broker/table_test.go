package broker

import (
	"testing"

	"github.com/axmq/lwmqtt/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableFindOrCreateReturnsSameHandleForSameName(t *testing.T) {
	tbl := NewTable(4, 16)
	h1, err := tbl.FindOrCreate("a/b")
	require.NoError(t, err)
	h2, err := tbl.FindOrCreate("a/b")
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestTableFindOrCreateExhaustion(t *testing.T) {
	tbl := NewTable(1, 16)
	_, err := tbl.FindOrCreate("a")
	require.NoError(t, err)
	_, err = tbl.FindOrCreate("b")
	assert.ErrorIs(t, err, ErrTopicTableFull)
}

func TestTableMatchExactOnly(t *testing.T) {
	tbl := NewTable(4, 16)
	h, err := tbl.FindOrCreate("a/b")
	require.NoError(t, err)

	got, ok := tbl.Match("a/b")
	assert.True(t, ok)
	assert.Equal(t, h, got)

	_, ok = tbl.Match("a/c")
	assert.False(t, ok)
}

func TestTableSubscribeLinksAtHead(t *testing.T) {
	tbl := NewTable(4, 16)
	th, _ := tbl.FindOrCreate("a/b")

	sess1 := Handle{index: 1, generation: 1}
	sess2 := Handle{index: 2, generation: 1}
	_, err := tbl.Subscribe(th, sess1, wire.QoS0)
	require.NoError(t, err)
	_, err = tbl.Subscribe(th, sess2, wire.QoS1)
	require.NoError(t, err)

	var order []Handle
	tbl.ForEachSubscriber(th, func(sh Handle, sub *subscriptionSlot) {
		order = append(order, sub.session)
	})
	assert.Equal(t, []Handle{sess2, sess1}, order)
}

func TestTableSubscriptionExhaustion(t *testing.T) {
	tbl := NewTable(4, 1)
	th, _ := tbl.FindOrCreate("a/b")
	sess1 := Handle{index: 1, generation: 1}
	sess2 := Handle{index: 2, generation: 1}

	_, err := tbl.Subscribe(th, sess1, wire.QoS0)
	require.NoError(t, err)
	_, err = tbl.Subscribe(th, sess2, wire.QoS0)
	assert.ErrorIs(t, err, ErrSubscriptionTableFull)
}

func TestTableUnsubscribeRemovesOnlyThatSession(t *testing.T) {
	tbl := NewTable(4, 16)
	th, _ := tbl.FindOrCreate("a/b")
	sess1 := Handle{index: 1, generation: 1}
	sess2 := Handle{index: 2, generation: 1}
	tbl.Subscribe(th, sess1, wire.QoS0)
	tbl.Subscribe(th, sess2, wire.QoS0)

	removed, emptied := tbl.Unsubscribe(th, sess1)
	assert.True(t, removed)
	assert.False(t, emptied)

	var remaining []Handle
	tbl.ForEachSubscriber(th, func(sh Handle, sub *subscriptionSlot) {
		remaining = append(remaining, sub.session)
	})
	assert.Equal(t, []Handle{sess2}, remaining)
}

func TestTableUnsubscribeLastSubscriberEmptiesTopic(t *testing.T) {
	tbl := NewTable(4, 16)
	th, _ := tbl.FindOrCreate("a/b")
	sess1 := Handle{index: 1, generation: 1}
	tbl.Subscribe(th, sess1, wire.QoS0)

	removed, emptied := tbl.Unsubscribe(th, sess1)
	assert.True(t, removed)
	assert.True(t, emptied)
}

func TestTableUnsubscribeUnknownSessionIsNoop(t *testing.T) {
	tbl := NewTable(4, 16)
	th, _ := tbl.FindOrCreate("a/b")
	sess1 := Handle{index: 1, generation: 1}
	sess2 := Handle{index: 2, generation: 1}
	tbl.Subscribe(th, sess1, wire.QoS0)

	removed, _ := tbl.Unsubscribe(th, sess2)
	assert.False(t, removed)
}

func TestTableReleaseSessionAcrossTopics(t *testing.T) {
	tbl := NewTable(4, 16)
	thA, _ := tbl.FindOrCreate("a")
	thB, _ := tbl.FindOrCreate("b")
	sess1 := Handle{index: 1, generation: 1}
	sess2 := Handle{index: 2, generation: 1}
	tbl.Subscribe(thA, sess1, wire.QoS0)
	tbl.Subscribe(thB, sess1, wire.QoS0)
	tbl.Subscribe(thB, sess2, wire.QoS0)

	emptied := tbl.ReleaseSession(sess1)
	assert.ElementsMatch(t, []Handle{thA}, emptied)

	var remainingB []Handle
	tbl.ForEachSubscriber(thB, func(sh Handle, sub *subscriptionSlot) {
		remainingB = append(remainingB, sub.session)
	})
	assert.Equal(t, []Handle{sess2}, remainingB)
}

func TestTableRemoveTopicDropsNameIndex(t *testing.T) {
	tbl := NewTable(4, 16)
	th, _ := tbl.FindOrCreate("a/b")
	tbl.RemoveTopic(th)

	_, ok := tbl.Match("a/b")
	assert.False(t, ok)

	h2, err := tbl.FindOrCreate("a/b")
	require.NoError(t, err)
	assert.Equal(t, th.index, h2.index)
	assert.NotEqual(t, th.generation, h2.generation)
}
