package sim

// routeDestinations computes the atomic input ports reached from a source
// output port by the transitive closure over couplings: IC edges cross to a
// sibling, EOC edges climb into the parent's output, EIC edges descend into
// a child's input. Duplicates along distinct paths are kept, so the
// receiver sees a value once per path. The traversal is depth-first in
// attachment order, which makes delivery deterministic for a fixed child
// ordering.
func routeDestinations(src *Port) []*Port {
	var out []*Port

	var walk func(cur *Port)
	walk = func(cur *Port) {
		host := cur.Host()

		if cur.Mode() == Input {
			if _, ok := host.(Atomic); ok {
				out = append(out, cur)
				return
			}

			// Input port of a coupled model: descend along its EICs.
			for _, cpl := range host.(*CoupledModel).CouplingsFrom(cur) {
				walk(cpl.Dst)
			}

			return
		}

		// Output port: follow the couplings of the enclosing parent. An
		// output port of the root has nowhere to go.
		parent := host.Parent()
		if parent == nil {
			return
		}

		for _, cpl := range parent.CouplingsFrom(cur) {
			walk(cpl.Dst)
		}
	}

	walk(src)

	return out
}
