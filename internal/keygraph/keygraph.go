// Package keygraph computes connected components over a bipartite
// node-to-key graph: two nodes are adjacent when they share at least one
// key. The company unifier uses it with requester identity keys, but the
// package knows nothing about tickets.
package keygraph

// Components returns the connected components of nodes under the shared-key
// adjacency relation. Traversal uses an explicit stack, so component depth
// is bounded only by memory, and components come back in the order their
// first node appears in nodes. Within a component, nodes appear in visit
// order. Nodes with no keys form singleton components.
func Components(nodes []string, keysOf func(node string) []string) [][]string {
	index := make(map[string][]string)
	for _, n := range nodes {
		for _, k := range keysOf(n) {
			index[k] = append(index[k], n)
		}
	}

	visited := make(map[string]bool, len(nodes))
	var components [][]string

	for _, start := range nodes {
		if visited[start] {
			continue
		}

		stack := []string{start}
		var component []string

		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited[cur] {
				continue
			}
			visited[cur] = true
			component = append(component, cur)

			for _, k := range keysOf(cur) {
				for _, neighbor := range index[k] {
					if !visited[neighbor] {
						stack = append(stack, neighbor)
					}
				}
			}
		}

		components = append(components, component)
	}

	return components
}
