package topology

import "slices"

// #region contact-points
// ContactPointGroups finds where unseen enemies could appear from the point of
// view of area. The frontier is every area that is traversable from area or
// from an area it can see, but is itself unseen. Frontier areas are grouped
// into connected components over traversability; each group is one approach
// that needs watching. Groups and their members are in ascending order.
func ContactPointGroups(g Static, area int) [][]int {
	n := g.NumberOfNodes()
	visible := make([]bool, n)
	visible[area] = true
	seen := []int{area}
	for to := 0; to < n; to++ {
		if to != area && g.IsVisible(area, to) {
			visible[to] = true
			seen = append(seen, to)
		}
	}

	frontier := make([]bool, n)
	for _, v := range seen {
		for _, nb := range g.Neighbors(v) {
			if !visible[nb] {
				frontier[nb] = true
			}
		}
	}

	var groups [][]int
	grouped := make([]bool, n)
	for start := 0; start < n; start++ {
		if !frontier[start] || grouped[start] {
			continue
		}
		groups = append(groups, walkFrontier(g, start, frontier, grouped))
	}
	return groups
}

// walkFrontier runs a BFS from start restricted to frontier areas, marking
// each visited area in grouped.
func walkFrontier(g Static, start int, frontier, grouped []bool) []int {
	group := []int{start}
	grouped[start] = true
	queue := []int{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, nb := range g.Neighbors(current) {
			if !frontier[nb] || grouped[nb] {
				continue
			}
			grouped[nb] = true
			group = append(group, nb)
			queue = append(queue, nb)
		}
	}
	slices.Sort(group)
	return group
}

// #endregion contact-points
