// Package graph provides a small acyclicity check over rule maps of the form
// source -> target, as used by the speaker merge rules.
package graph

// FindCycle walks the target chain starting from every source in edges and
// returns the first cycle found as the path that closes it, or nil when the
// graph is acyclic. A map can hold at most one outgoing edge per source, so
// following edges[current] until the key disappears visits every reachable
// node exactly once per walk.
func FindCycle(edges map[string]string) []string {
	for src := range edges {
		visited := map[string]bool{src: true}
		path := []string{src}
		current := edges[src]
		for {
			path = append(path, current)
			if visited[current] {
				return path
			}
			next, ok := edges[current]
			if !ok {
				break
			}
			visited[current] = true
			current = next
		}
	}
	return nil
}
