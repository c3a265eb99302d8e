package unread

// recentIDs remembers the last size message ids. Older ids are forgotten in
// insertion order.
type recentIDs struct {
	ids  map[string]struct{}
	ring []string
	next int
}

func newRecentIDs(size int) *recentIDs {
	if size <= 0 {
		size = 1
	}

	return &recentIDs{
		ids:  make(map[string]struct{}, size),
		ring: make([]string, size),
	}
}

// add returns false if id is already remembered.
func (r *recentIDs) add(id string) bool {
	if _, ok := r.ids[id]; ok {
		return false
	}

	if old := r.ring[r.next]; old != "" {
		delete(r.ids, old)
	}

	r.ring[r.next] = id
	r.ids[id] = struct{}{}
	r.next = (r.next + 1) % len(r.ring)
	return true
}
