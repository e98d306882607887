package eviction

import "container/list"

// LRUPolicy keeps keys in recency order. Front is most recently used.
type LRUPolicy struct {
	order *list.List
	nodes map[string]*list.Element
}

func NewLRU() *LRUPolicy {
	return &LRUPolicy{
		order: list.New(),
		nodes: make(map[string]*list.Element),
	}
}

func (p *LRUPolicy) OnAdmit(key string) {
	if el, ok := p.nodes[key]; ok {
		p.order.MoveToFront(el)
		return
	}
	p.nodes[key] = p.order.PushFront(key)
}

func (p *LRUPolicy) OnAccess(key string) {
	if el, ok := p.nodes[key]; ok {
		p.order.MoveToFront(el)
	}
}

func (p *LRUPolicy) OnRemove(key string) {
	if el, ok := p.nodes[key]; ok {
		p.order.Remove(el)
		delete(p.nodes, key)
	}
}

func (p *LRUPolicy) SelectVictim() (string, bool) {
	el := p.order.Back()
	if el == nil {
		return "", false
	}
	key := p.order.Remove(el).(string)
	delete(p.nodes, key)
	return key, true
}

func (p *LRUPolicy) Reset() {
	p.order.Init()
	p.nodes = make(map[string]*list.Element)
}

func (p *LRUPolicy) Len() int {
	return len(p.nodes)
}
