package room

import "github.com/ageniuscoder/mmchat/client/internal/chat"

// Timeline is what the active room shows: the historical segment followed by
// the live segment. Neither segment is ever reordered.
type Timeline struct {
	historical []chat.Message
	live       []chat.Message
}

// Messages returns the displayed order as a fresh slice.
func (t *Timeline) Messages() []chat.Message {
	out := make([]chat.Message, 0, len(t.historical)+len(t.live))
	out = append(out, t.historical...)
	return append(out, t.live...)
}

// Prepend inserts an older page above everything loaded so far.
func (t *Timeline) Prepend(page []chat.Message) {
	if len(page) == 0 {
		return
	}
	merged := make([]chat.Message, 0, len(page)+len(t.historical))
	merged = append(merged, page...)
	t.historical = append(merged, t.historical...)
}

func (t *Timeline) Append(m chat.Message) {
	t.live = append(t.live, m)
}

// First is the top displayed message.
func (t *Timeline) First() (chat.Message, bool) {
	switch {
	case len(t.historical) > 0:
		return t.historical[0], true
	case len(t.live) > 0:
		return t.live[0], true
	}
	return chat.Message{}, false
}

func (t *Timeline) Len() int {
	return len(t.historical) + len(t.live)
}

func (t *Timeline) Historical() int { return len(t.historical) }

func (t *Timeline) Live() int { return len(t.live) }

func (t *Timeline) Reset() {
	t.historical = nil
	t.live = nil
}
