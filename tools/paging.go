package tools

// window clamps [offset, offset+limit) to a sequence of n items. A
// non-positive limit means def.
func window(n, offset, limit, def int) (start, end int) {
	if limit <= 0 {
		limit = def
	}
	start = min(max(offset, 0), n)
	end = min(start+limit, n)
	return start, end
}

// clip cuts s to at most n runes and reports whether it did.
func clip(s string, n int) (string, bool) {
	if len(s) <= n {
		return s, false
	}
	r := []rune(s)
	if len(r) <= n {
		return s, false
	}
	return string(r[:n]), true
}
