package cluster

// unionFind is a disjoint-set forest over 0..n-1.  The root of every set is
// its lowest index, so representatives do not depend on the order in which
// unions are applied.  It is not safe for concurrent use; callers serialise
// unions.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

// find returns the root of x, compressing the path on the way.
func (u *unionFind) find(x int) int {
	root := x
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[x] != root {
		next := u.parent[x]
		u.parent[x] = root
		x = next
	}
	return root
}

// union merges the sets of x and y and reports whether they were distinct.
func (u *unionFind) union(x, y int) bool {
	rx, ry := u.find(x), u.find(y)
	if rx == ry {
		return false
	}
	if ry < rx {
		rx, ry = ry, rx
	}
	u.parent[ry] = rx
	return true
}
