package sim

// Flatten collapses a hierarchy into a single-level coupled model: every
// multi-hop path from an atomic output to an atomic input through EOC, IC,
// and EIC chains becomes one direct internal coupling between the leaves,
// and the intermediate coupled shells are discarded. The delivered
// (source port, destination port) pairs and their fan-out multiplicity are
// preserved, so routing through the flattened model is indistinguishable
// from routing through the original.
//
// The atomic models themselves are reused, re-parented under the new root.
func Flatten(root *CoupledModel) *CoupledModel {
	leaves := collectAtomics(root)

	// Resolve every leaf-to-leaf path before touching the hierarchy.
	type flatCoupling struct {
		src, dst *Port
	}

	var direct []flatCoupling

	for _, leaf := range leaves {
		for _, p := range leaf.OutputPorts() {
			for _, dst := range routeDestinations(p) {
				direct = append(direct, flatCoupling{src: p, dst: dst})
			}
		}
	}

	flat := NewCoupledModel(root.Name())
	if kind, ok := root.PreferredEventSet(); ok {
		flat.SetPreferredEventSet(kind)
	}

	for _, leaf := range leaves {
		flat.AddChild(leaf)
	}

	for _, c := range direct {
		flat.attachDirect(c.src, c.dst)
	}

	return flat
}

// collectAtomics gathers the atomic leaves in depth-first preorder, which
// preserves the deterministic child ordering of the original hierarchy.
func collectAtomics(c *CoupledModel) []Atomic {
	var out []Atomic

	for _, child := range c.Children() {
		switch m := child.(type) {
		case Atomic:
			out = append(out, m)
		case *CoupledModel:
			out = append(out, collectAtomics(m)...)
		}
	}

	return out
}
