package pattern

// Find returns the leftmost offset in region at which sig matches.
// A signature longer than the region, or an empty one, never matches.
func Find(region []byte, sig Signature) (int, bool) {
	n := len(sig)
	if n == 0 || n > len(region) {
		return 0, false
	}
	first := sig[0]
	for off := 0; off <= len(region)-n; off++ {
		if first.Significant && region[off] != first.Value {
			continue
		}
		if sig.Match(region[off : off+n]) {
			return off, true
		}
	}
	return 0, false
}

// FindAt is Find over a region that starts at address base.
func FindAt(base uintptr, region []byte, sig Signature) (uintptr, bool) {
	off, ok := Find(region, sig)
	if !ok {
		return 0, false
	}
	return base + uintptr(off), true
}
