package engine

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync"
	"github.com/questx-lab/chat/internal/domain/notification/directive"
	"github.com/questx-lab/chat/internal/domain/notification/event"
	"github.com/questx-lab/chat/internal/model"
	"github.com/questx-lab/chat/pkg/errorx"
	"github.com/questx-lab/chat/pkg/pubsub"
	"github.com/questx-lab/chat/pkg/xcontext"
)

type EngineServer struct {
	processors *xsync.MapOf[string, *Processor]

	// mutex serializes the creation and removal of processors. Emit only
	// reads the map.
	mutex sync.Mutex
}

func NewEngineServer() *EngineServer {
	return &EngineServer{
		processors: xsync.NewMapOf[*Processor](),
	}
}

func (s *EngineServer) register(session *ProxySession, topic string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	processor, _ := s.processors.LoadOrStore(topic, NewProcessor(topic))
	processor.Register(session)
	session.topics[topic] = struct{}{}
}

func (s *EngineServer) unregister(session *ProxySession, topic string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(session.topics, topic)
	processor, ok := s.processors.Load(topic)
	if !ok {
		return
	}

	processor.Unregister(session)
	if processor.IsEmpty() {
		s.processors.Delete(topic)
	}
}

func (s *EngineServer) unregisterAll(session *ProxySession) {
	for topic := range session.topics {
		s.unregister(session, topic)
	}
}

// Emit sends the event to every proxy registered to one of its topics. A proxy
// registered to several of them receives the event once.
func (s *EngineServer) Emit(ctx context.Context, ev *event.EventRequest) error {
	topics := make([]string, 0, len(ev.Metadata.ToUsers)+1)
	if ev.Metadata.ToChannel != "" {
		topics = append(topics, event.ChannelTopic(ev.Metadata.ToChannel))
	}

	for _, userID := range ev.Metadata.ToUsers {
		topics = append(topics, event.UserTopic(userID))
	}

	proxies := map[string]*ProxySession{}
	for _, topic := range topics {
		if processor, ok := s.processors.Load(topic); ok {
			processor.collect(proxies)
		}
	}

	for _, proxy := range proxies {
		if !proxy.Send(ev) {
			xcontext.Logger(ctx).Warnf("Proxy %s is too slow, drop it", proxy.id)
		}
	}

	return nil
}

// Subscribe consumes the events published on the message queue.
func (s *EngineServer) Subscribe(ctx context.Context, pack *pubsub.Pack, t time.Time) {
	var ev event.EventRequest
	if err := json.Unmarshal(pack.Msg, &ev); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot unmarshal event: %v", err)
		return
	}

	if err := s.Emit(ctx, &ev); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot emit event %s: %v", ev.Op, err)
	}
}

func (s *EngineServer) ServeProxy(ctx context.Context, _ *model.ServeNotificationEngineRequest) error {
	proxySession := NewProxySession()
	defer s.unregisterAll(proxySession)
	defer proxySession.Close()

	wsClient := xcontext.WSClient(ctx)
	for {
		select {
		case <-proxySession.Done():
			return errorx.New(errorx.SessionClosed, "Proxy is too slow")

		case req, ok := <-wsClient.R:
			if !ok {
				return errorx.New(errorx.SessionClosed, "Proxy disconnected")
			}

			var d directive.ServerDirective
			if err := json.Unmarshal(req, &d); err != nil {
				xcontext.Logger(ctx).Errorf("Cannot unmarshal directive: %v", err)
				return errorx.Unknown
			}

			switch d.Op {
			case directive.EngineRegisterTopicDirectiveOp:
				var registerDirective directive.EngineRegisterTopicDirective
				if err := json.Unmarshal(d.Data, &registerDirective); err != nil {
					xcontext.Logger(ctx).Errorf("Cannot unmarshal register topic data: %v", err)
					return errorx.Unknown
				}

				s.register(proxySession, registerDirective.Topic)
				xcontext.Logger(ctx).Debugf("Proxy %s register to topic %s",
					proxySession.id, registerDirective.Topic)

			case directive.EngineUnregisterTopicDirectiveOp:
				var unregisterDirective directive.EngineUnregisterTopicDirective
				if err := json.Unmarshal(d.Data, &unregisterDirective); err != nil {
					xcontext.Logger(ctx).Errorf("Cannot unmarshal unregister topic data: %v", err)
					return errorx.Unknown
				}

				s.unregister(proxySession, unregisterDirective.Topic)
				xcontext.Logger(ctx).Debugf("Proxy %s unregister to topic %s",
					proxySession.id, unregisterDirective.Topic)

			default:
				xcontext.Logger(ctx).Warnf("Unknown directive op %d", d.Op)
			}

		case ev := <-proxySession.C:
			b, err := json.Marshal(ev)
			if err != nil {
				xcontext.Logger(ctx).Errorf("Cannot marshal event: %v", err)
				continue
			}

			if err := wsClient.Write(b, true); err != nil {
				xcontext.Logger(ctx).Errorf("Cannot write to ws: %v", err)
				return errorx.Unknown
			}
		}
	}
}
