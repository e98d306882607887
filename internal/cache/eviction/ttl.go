package eviction

// TTLOnlyPolicy never offers a victim. A cache using it relies on expiry
// alone and rejects new keys once it is full.
type TTLOnlyPolicy struct {
	keys map[string]struct{}
}

func NewTTLOnly() *TTLOnlyPolicy {
	return &TTLOnlyPolicy{keys: make(map[string]struct{})}
}

func (p *TTLOnlyPolicy) OnAdmit(key string)  { p.keys[key] = struct{}{} }
func (p *TTLOnlyPolicy) OnAccess(string)     {}
func (p *TTLOnlyPolicy) OnRemove(key string) { delete(p.keys, key) }

func (p *TTLOnlyPolicy) SelectVictim() (string, bool) { return "", false }

func (p *TTLOnlyPolicy) Reset() { p.keys = make(map[string]struct{}) }

func (p *TTLOnlyPolicy) Len() int { return len(p.keys) }
