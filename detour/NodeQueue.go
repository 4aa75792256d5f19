package detour

import "container/heap"

type nodeHeap []*Node

func (h nodeHeap) Len() int           { return len(h) }
func (h nodeHeap) Less(i, j int) bool { return h[i].total < h[j].total }
func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *nodeHeap) Push(x any) {
	n := x.(*Node)
	n.heapIndex = len(*h)
	*h = append(*h, n)
}

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.heapIndex = -1
	*h = old[:n-1]
	return node
}

// NodeQueue is the open list of a search, ordered by Node.total.
type NodeQueue struct {
	heap nodeHeap
}

func (q *NodeQueue) clear() {
	for _, n := range q.heap {
		n.heapIndex = -1
	}
	q.heap = q.heap[:0]
}

func (q *NodeQueue) pop() *Node {
	if len(q.heap) == 0 {
		return nil
	}
	return heap.Pop(&q.heap).(*Node)
}

func (q *NodeQueue) push(n *Node) {
	heap.Push(&q.heap, n)
}

// modify restores the heap order after n.total decreased.
func (q *NodeQueue) modify(n *Node) {
	if n.heapIndex < 0 {
		q.push(n)
		return
	}
	heap.Fix(&q.heap, n.heapIndex)
}

func (q *NodeQueue) empty() bool {
	return len(q.heap) == 0
}
