package cluster

// Label returns the spreadsheet-style label of the i-th cluster:
// 0 → "A", 25 → "Z", 26 → "AA", 27 → "AB".
func Label(i int) string {
	if i < 0 {
		return ""
	}
	var buf [8]byte
	pos := len(buf)
	for n := i + 1; n > 0; n = (n - 1) / 26 {
		pos--
		buf[pos] = byte('A' + (n-1)%26)
	}
	return string(buf[pos:])
}

// assignLabels labels groups containing sequence-only records first, in the
// input order of those records, then the remaining groups in group order.
func assignLabels(groups []*Group, records []recordRef) {
	next := 0
	for _, ref := range records {
		if ref.rec.HasStructure() {
			continue
		}
		g := groups[ref.group]
		if g.Label == "" {
			g.Label = Label(next)
			next++
		}
	}
	for _, g := range groups {
		if g.Label == "" {
			g.Label = Label(next)
			next++
		}
	}
}
