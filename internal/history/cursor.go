package history

// Cursor tracks which history page is loaded and which request is in flight.
// The sequence keeps growing across Reset so a response that arrives after the
// room changed can never be mistaken for a current one.
type Cursor struct {
	Page       int
	TotalPages int

	seq         uint64
	pendingSeq  uint64
	pendingPage int
}

// Begin marks a request for page as in flight and returns its sequence.
func (c *Cursor) Begin(page int) uint64 {
	c.seq++
	c.pendingSeq = c.seq
	c.pendingPage = page
	return c.seq
}

func (c *Cursor) InFlight() bool {
	return c.pendingSeq != 0
}

// Next proposes the next older page to load, if any.
func (c *Cursor) Next() (int, bool) {
	if c.InFlight() || c.Page >= c.TotalPages {
		return 0, false
	}
	return c.Page + 1, true
}

// Accept applies a response. It returns false for anything but the request
// currently in flight.
func (c *Cursor) Accept(seq uint64, page, totalPages int) bool {
	if seq == 0 || seq != c.pendingSeq || page != c.pendingPage {
		return false
	}
	c.pendingSeq = 0
	c.pendingPage = 0
	c.Page = page
	c.TotalPages = totalPages
	return true
}

// Fail clears the in-flight request without moving the cursor.
func (c *Cursor) Fail(seq uint64) bool {
	if seq == 0 || seq != c.pendingSeq {
		return false
	}
	c.pendingSeq = 0
	c.pendingPage = 0
	return true
}

func (c *Cursor) Reset() {
	c.Page = 0
	c.TotalPages = 0
	c.pendingSeq = 0
	c.pendingPage = 0
}
