package detour

type nodeKey struct {
	id    PolyRef
	state uint8
}

// NodePool hands out search nodes up to a fixed capacity.
type NodePool struct {
	lookup   map[nodeKey]*Node
	nodes    []*Node
	maxNodes int
}

func newNodePool(maxNodes int) *NodePool {
	return &NodePool{
		lookup:   make(map[nodeKey]*Node, maxNodes),
		nodes:    make([]*Node, 0, maxNodes),
		maxNodes: maxNodes,
	}
}

// getNode returns the node for (id, state), creating it when needed. It
// returns nil when the pool is exhausted.
func (p *NodePool) getNode(id PolyRef, state uint8) *Node {
	key := nodeKey{id, state}
	if n, ok := p.lookup[key]; ok {
		return n
	}
	if len(p.nodes) >= p.maxNodes {
		return nil
	}
	n := &Node{index: len(p.nodes) + 1, id: id, state: state, heapIndex: -1}
	p.nodes = append(p.nodes, n)
	p.lookup[key] = n
	return n
}

func (p *NodePool) findNode(id PolyRef, state uint8) *Node {
	return p.lookup[nodeKey{id, state}]
}

func (p *NodePool) nodeIdx(n *Node) int {
	if n == nil {
		return 0
	}
	return n.index
}

func (p *NodePool) nodeAtIdx(idx int) *Node {
	if idx == 0 {
		return nil
	}
	return p.nodes[idx-1]
}

func (p *NodePool) clear() {
	for k := range p.lookup {
		delete(p.lookup, k)
	}
	p.nodes = p.nodes[:0]
}
