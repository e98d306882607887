package eviction

import "container/list"

type lfuNode struct {
	key  string
	freq int
	el   *list.Element
}

// LFUPolicy groups keys into frequency buckets. Within a bucket keys are
// kept in the order they reached that frequency, so the victim is the
// oldest key among the least frequently used.
type LFUPolicy struct {
	nodes   map[string]*lfuNode
	buckets map[int]*list.List
	minFreq int
}

func NewLFU() *LFUPolicy {
	return &LFUPolicy{
		nodes:   make(map[string]*lfuNode),
		buckets: make(map[int]*list.List),
	}
}

func (p *LFUPolicy) OnAdmit(key string) {
	if _, ok := p.nodes[key]; ok {
		p.OnAccess(key)
		return
	}
	n := &lfuNode{key: key, freq: 1}
	n.el = p.bucket(1).PushBack(n)
	p.nodes[key] = n
	p.minFreq = 1
}

func (p *LFUPolicy) OnAccess(key string) {
	n, ok := p.nodes[key]
	if !ok {
		return
	}
	p.unlink(n)
	n.freq++
	n.el = p.bucket(n.freq).PushBack(n)
	if p.minFreq == 0 || n.freq < p.minFreq {
		p.minFreq = n.freq
	}
}

func (p *LFUPolicy) OnRemove(key string) {
	n, ok := p.nodes[key]
	if !ok {
		return
	}
	p.unlink(n)
	delete(p.nodes, key)
}

func (p *LFUPolicy) SelectVictim() (string, bool) {
	if len(p.nodes) == 0 {
		return "", false
	}
	b, ok := p.buckets[p.minFreq]
	if !ok || b.Len() == 0 {
		p.recomputeMin()
		b = p.buckets[p.minFreq]
	}
	n := b.Front().Value.(*lfuNode)
	p.unlink(n)
	delete(p.nodes, n.key)
	return n.key, true
}

func (p *LFUPolicy) Reset() {
	p.nodes = make(map[string]*lfuNode)
	p.buckets = make(map[int]*list.List)
	p.minFreq = 0
}

func (p *LFUPolicy) Len() int {
	return len(p.nodes)
}

func (p *LFUPolicy) bucket(freq int) *list.List {
	b, ok := p.buckets[freq]
	if !ok {
		b = list.New()
		p.buckets[freq] = b
	}
	return b
}

// unlink drops n from its bucket and keeps minFreq pointing at a live bucket
// when the removal empties the current minimum.
func (p *LFUPolicy) unlink(n *lfuNode) {
	b := p.buckets[n.freq]
	b.Remove(n.el)
	if b.Len() > 0 {
		return
	}
	delete(p.buckets, n.freq)
	if p.minFreq == n.freq {
		p.recomputeMin()
	}
}

func (p *LFUPolicy) recomputeMin() {
	p.minFreq = 0
	for freq := range p.buckets {
		if p.minFreq == 0 || freq < p.minFreq {
			p.minFreq = freq
		}
	}
}
