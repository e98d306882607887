package eviction

import "container/list"

// FIFOPolicy evicts in insertion order and ignores reads.
type FIFOPolicy struct {
	queue *list.List
	nodes map[string]*list.Element
}

func NewFIFO() *FIFOPolicy {
	return &FIFOPolicy{
		queue: list.New(),
		nodes: make(map[string]*list.Element),
	}
}

// OnAdmit enqueues key. Re-admitting a tracked key keeps its original position.
func (p *FIFOPolicy) OnAdmit(key string) {
	if _, ok := p.nodes[key]; ok {
		return
	}
	p.nodes[key] = p.queue.PushBack(key)
}

func (p *FIFOPolicy) OnAccess(string) {}

func (p *FIFOPolicy) OnRemove(key string) {
	if el, ok := p.nodes[key]; ok {
		p.queue.Remove(el)
		delete(p.nodes, key)
	}
}

func (p *FIFOPolicy) SelectVictim() (string, bool) {
	el := p.queue.Front()
	if el == nil {
		return "", false
	}
	key := p.queue.Remove(el).(string)
	delete(p.nodes, key)
	return key, true
}

func (p *FIFOPolicy) Reset() {
	p.queue.Init()
	p.nodes = make(map[string]*list.Element)
}

func (p *FIFOPolicy) Len() int {
	return len(p.nodes)
}
