package availability

import "time"

// SlotMinutes is the granularity of the occupancy bitset.  Busy
// windows are rounded outward to 15 minute slots, so the bitset may
// report a slot as busy when only part of it is; the window list is
// consulted for the exact answer in that case.
const SlotMinutes = 15

const slotDuration = SlotMinutes * time.Minute

// slotBitset is a growable bitset over 15 minute slots counted from a
// fixed origin.  One word covers 64 slots (16 hours).
type slotBitset struct {
    origin time.Time
    words  []uint64
}

func newSlotBitset(origin time.Time) *slotBitset {
    return &slotBitset{origin: origin.UTC().Truncate(slotDuration)}
}

// slotOf maps an instant to its slot index, clamped at zero for
// instants before the origin.
func (b *slotBitset) slotOf(t time.Time) int {
    d := t.Sub(b.origin)
    if d < 0 {
        return 0
    }
    return int(d / slotDuration)
}

// slotCeil maps an exclusive end instant to the first slot index not
// covered by the window.
func (b *slotBitset) slotCeil(t time.Time) int {
    d := t.Sub(b.origin)
    if d <= 0 {
        return 0
    }
    n := int(d / slotDuration)
    if d%slotDuration != 0 {
        n++
    }
    return n
}

// markRange sets every slot touched by the half open window.
func (b *slotBitset) markRange(w Window) {
    lo, hi := b.slotOf(w.Start), b.slotCeil(w.End)
    if hi <= lo {
        hi = lo + 1
    }
    if need := (hi + 63) / 64; need > len(b.words) {
        grown := make([]uint64, need)
        copy(grown, b.words)
        b.words = grown
    }
    for i := lo; i < hi; i++ {
        b.words[i/64] |= 1 << uint(i%64)
    }
}

// anySet reports whether any slot touched by the window is marked.
// A false result means the window is definitely free; a true result
// may be a rounding artefact and needs the window list to confirm.
func (b *slotBitset) anySet(w Window) bool {
    lo, hi := b.slotOf(w.Start), b.slotCeil(w.End)
    for i := lo; i < hi; i++ {
        word := i / 64
        if word >= len(b.words) {
            return false
        }
        if b.words[word]&(1<<uint(i%64)) != 0 {
            return true
        }
    }
    return false
}
