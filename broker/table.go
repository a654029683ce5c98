package broker

import "github.com/axmq/lwmqtt/wire"

// topicSlot is one entry in the broker's topic table: a name and the head
// of its subscriber list. The list is threaded through the subscription
// pool's own handles rather than a slice, so adding/removing a subscriber
// never reallocates or shifts other subscribers.
type topicSlot struct {
	name    string
	head    Handle
	subs    int
	retains bool
}

// subscriptionSlot is one subscriber linked under a topic.
type subscriptionSlot struct {
	session Handle
	topic   Handle
	qos     wire.QoS
	next    Handle
}

// Table is the broker's exact-match topic table (§4.4's routing fan-out):
// a PUBLISH's topic is looked up by byte-exact string equality against
// topics created by prior SUBSCRIBEs. This is the seam §4.4 calls out as
// swappable for a wildcard matcher - see topic.Match for a level-by-level
// implementation of that alternative, kept unwired by default.
//
// Table indexes topics by name with a plain Go map for O(1) PUBLISH
// lookup; the map only ever holds at most MaxTopicCount entries; capacity
// enforcement happens at the Pool[topicSlot] level, not the map.
type Table struct {
	topics *Pool[topicSlot]
	subs   *Pool[subscriptionSlot]
	byName map[string]Handle
}

// NewTable allocates a table with fixed topic and subscription capacities.
func NewTable(maxTopics, maxSubscriptions int) *Table {
	return &Table{
		topics: NewPool[topicSlot](maxTopics),
		subs:   NewPool[subscriptionSlot](maxSubscriptions),
		byName: make(map[string]Handle, maxTopics),
	}
}

// TopicCount returns the number of topic slots currently in use.
func (t *Table) TopicCount() int { return t.topics.Len() }

// Match looks up the topic slot exactly matching name (a concrete PUBLISH
// topic, never a filter), per §4.4's byte-exact equality rule.
func (t *Table) Match(name string) (Handle, bool) {
	h, ok := t.byName[name]
	return h, ok
}

// FindOrCreate returns the existing topic slot for name, or allocates one
// if name has never been subscribed to. Fails with ErrTopicTableFull if
// every topic slot is already in use.
func (t *Table) FindOrCreate(name string) (Handle, error) {
	if h, ok := t.byName[name]; ok {
		return h, nil
	}
	h, err := t.topics.Alloc()
	if err != nil {
		var zero Handle
		return zero, ErrTopicTableFull
	}
	slot, _ := t.topics.Get(h)
	slot.name = name
	slot.head = Handle{}
	slot.subs = 0
	t.byName[name] = h
	return h, nil
}

// Topic returns a pointer to th's slot, or (nil, false) if th is stale.
func (t *Table) Topic(th Handle) (*topicSlot, bool) {
	return t.topics.Get(th)
}

// Subscribe links a new subscription at the head of th's subscriber list,
// per §4.4 ("link the subscription at the head of the topic's list").
// Fails with ErrSubscriptionTableFull if every subscription slot is in
// use.
func (t *Table) Subscribe(th, sessionHandle Handle, qos wire.QoS) (Handle, error) {
	topicSlot, ok := t.topics.Get(th)
	if !ok {
		var zero Handle
		return zero, ErrStaleHandle
	}
	sh, err := t.subs.Alloc()
	if err != nil {
		var zero Handle
		return zero, ErrSubscriptionTableFull
	}
	sub, _ := t.subs.Get(sh)
	sub.session = sessionHandle
	sub.topic = th
	sub.qos = qos
	sub.next = topicSlot.head
	topicSlot.head = sh
	topicSlot.subs++
	return sh, nil
}

// Unsubscribe unlinks the subscription owned by sessionHandle on th, if
// any. It reports whether a subscription was removed and whether th's
// subscriber list is now empty (the caller returns an emptied topic slot
// to the free list, per §4.4).
func (t *Table) Unsubscribe(th, sessionHandle Handle) (removed bool, emptied bool) {
	topicSlot, ok := t.topics.Get(th)
	if !ok {
		return false, false
	}

	var prev Handle
	cur := topicSlot.head
	for cur.Valid() {
		sub, ok := t.subs.Get(cur)
		if !ok {
			break
		}
		if sub.session == sessionHandle {
			if prev.Valid() {
				prevSub, _ := t.subs.Get(prev)
				prevSub.next = sub.next
			} else {
				topicSlot.head = sub.next
			}
			t.subs.Release(cur)
			topicSlot.subs--
			return true, topicSlot.subs == 0
		}
		prev = cur
		cur = sub.next
	}
	return false, false
}

// RemoveTopic returns th's slot to the free list and drops it from the
// name index. Callers must have already emptied its subscriber list.
func (t *Table) RemoveTopic(th Handle) {
	if slot, ok := t.topics.Get(th); ok {
		delete(t.byName, slot.name)
	}
	t.topics.Release(th)
}

// ReleaseSession unlinks every subscription owned by sessionHandle across
// all topics, for use when a session is torn down. It returns the handles
// of any topics emptied as a result, so the caller can return them to the
// free list.
func (t *Table) ReleaseSession(sessionHandle Handle) []Handle {
	var emptied []Handle
	t.topics.ForEach(func(th Handle, slot *topicSlot) bool {
		if removed, isEmpty := t.Unsubscribe(th, sessionHandle); removed && isEmpty {
			emptied = append(emptied, th)
		}
		return true
	})
	return emptied
}

// ForEachSubscriber visits every subscription linked under th, head first
// (the most recently subscribed session first).
func (t *Table) ForEachSubscriber(th Handle, fn func(sh Handle, sub *subscriptionSlot)) {
	slot, ok := t.topics.Get(th)
	if !ok {
		return
	}
	cur := slot.head
	for cur.Valid() {
		sub, ok := t.subs.Get(cur)
		if !ok {
			return
		}
		next := sub.next
		fn(cur, sub)
		cur = next
	}
}
