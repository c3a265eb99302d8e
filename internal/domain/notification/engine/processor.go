package engine

import (
	"github.com/puzpuzpuz/xsync"
)

// Processor holds the proxies registered to one topic, a channel or a user.
type Processor struct {
	topic   string
	proxies *xsync.MapOf[string, *ProxySession]
}

func NewProcessor(topic string) *Processor {
	return &Processor{
		topic:   topic,
		proxies: xsync.NewMapOf[*ProxySession](),
	}
}

func (p *Processor) Register(session *ProxySession) {
	p.proxies.LoadOrStore(session.id, session)
}

func (p *Processor) Unregister(session *ProxySession) {
	p.proxies.Delete(session.id)
}

func (p *Processor) IsEmpty() bool {
	empty := true
	p.proxies.Range(func(string, *ProxySession) bool {
		empty = false
		return false
	})

	return empty
}

func (p *Processor) collect(into map[string]*ProxySession) {
	p.proxies.Range(func(id string, session *ProxySession) bool {
		into[id] = session
		return true
	})
}
