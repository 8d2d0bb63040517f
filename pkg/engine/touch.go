package engine

import "math"

// toucher generates memory traffic over one arena partition. The first lap
// writes one byte per page so the whole partition gets faulted in; after
// that the cursor advances a byte at a time and writes whenever it lands on
// a page boundary. Without memory it only burns floating point work.
type toucher struct {
	mem   []byte
	page  int
	pos   int
	first bool
	sink  float64
}

func newToucher(mem []byte, pageSize int) *toucher {
	if pageSize <= 0 {
		pageSize = 1
	}
	return &toucher{mem: mem, page: pageSize, first: true}
}

func (t *toucher) step() {
	if len(t.mem) == 0 {
		t.pos++
		t.sink += math.Sqrt(float64(t.pos))
		return
	}

	if t.pos%t.page == 0 {
		t.mem[t.pos] = byte(math.Sqrt(float64(t.pos)))
	}

	if t.first {
		if t.pos+t.page < len(t.mem) {
			t.pos += t.page
		} else {
			t.first = false
			t.pos = 0
		}
		return
	}

	if t.pos < len(t.mem)-1 {
		t.pos++
	} else {
		t.pos = 0
	}
	t.sink += math.Sqrt(float64(t.pos))
}
