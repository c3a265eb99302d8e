package proxy

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/questx-lab/chat/internal/domain/notification/directive"
	"github.com/questx-lab/chat/internal/domain/notification/event"
	"github.com/questx-lab/chat/pkg/ws"
	"github.com/questx-lab/chat/pkg/xcontext"
)

// Router keeps the connection to the notification engine and dispatches the
// events it receives to the hubs of this proxy.
type Router struct {
	engineClient *ws.Client
	hubs         map[string]*Hub

	mutex sync.RWMutex
}

func NewRouter(ctx context.Context) *Router {
	router := newRouter()
	go router.run(ctx)
	return router
}

func newRouter() *Router {
	return &Router{
		hubs: make(map[string]*Hub),
	}
}

// Join registers the session to the hub of topic. The hub is created, and
// registered to the engine, if it does not exist yet.
func (r *Router) Join(ctx context.Context, topic string, session *Session) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	hub, ok := r.hubs[topic]
	if !ok {
		hub = NewHub(topic)
		r.hubs[topic] = hub

		// Without connection, the hub is registered once connected.
		if r.engineClient != nil {
			r.writeDirective(ctx, directive.NewRegisterTopicDirective(topic))
		}
	}

	hub.Register(session)
}

func (r *Router) Leave(topic string, session *Session) {
	r.mutex.RLock()
	hub, ok := r.hubs[topic]
	r.mutex.RUnlock()

	if ok {
		hub.Unregister(session)
	}
}

func (r *Router) run(ctx context.Context) {
	interval := xcontext.Configs(ctx).Notification.ReconnectInterval
	for {
		r.checkConnection(ctx)
		r.cleanup(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// cleanup removes the hubs nobody listens to anymore.
func (r *Router) cleanup(ctx context.Context) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for topic, hub := range r.hubs {
		if !hub.IsEmpty() {
			continue
		}

		if r.engineClient != nil {
			r.writeDirective(ctx, directive.NewUnregisterTopicDirective(topic))
		}

		delete(r.hubs, topic)
	}
}

func (r *Router) checkConnection(ctx context.Context) {
	r.mutex.RLock()
	engineClient := r.engineClient
	r.mutex.RUnlock()

	if engineClient != nil {
		return
	}

	url := xcontext.Configs(ctx).Notification.EngineWSServer.Endpoint
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot establish connection with notification engine: %v", err)
		return
	}

	xcontext.Logger(ctx).Infof("Connected to notification engine successfully")

	// Events from the engine are compressed, directives to it are not.
	engineClient = ws.NewClient(conn, true)
	r.connected(ctx, engineClient)
	go r.runReceive(ctx, engineClient)
}

// connected registers every hub again and asks their sessions to resync,
// events emitted while disconnected are lost.
func (r *Router) connected(ctx context.Context, engineClient *ws.Client) {
	r.mutex.Lock()
	r.engineClient = engineClient
	for topic := range r.hubs {
		r.writeDirective(ctx, directive.NewRegisterTopicDirective(topic))
	}
	r.mutex.Unlock()

	r.broadcast(event.New(&event.ResyncEvent{}, event.Metadata{}))
}

func (r *Router) runReceive(ctx context.Context, engineClient *ws.Client) {
	for {
		msg, ok := <-engineClient.R
		if !ok {
			break
		}

		var ev event.EventRequest
		if err := json.Unmarshal(msg, &ev); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot unmarshal event: %v", err)
			continue
		}

		r.dispatch(ctx, &ev)
	}

	r.mutex.Lock()
	if r.engineClient == engineClient {
		r.engineClient = nil
	}
	r.mutex.Unlock()

	xcontext.Logger(ctx).Warnf("Lost connection with notification engine")
}

// dispatch sends the event once to every session listening to one of its
// topics.
func (r *Router) dispatch(ctx context.Context, ev *event.EventRequest) {
	topics := make([]string, 0, len(ev.Metadata.ToUsers)+1)
	if ev.Metadata.ToChannel != "" {
		topics = append(topics, event.ChannelTopic(ev.Metadata.ToChannel))
	}

	for _, userID := range ev.Metadata.ToUsers {
		topics = append(topics, event.UserTopic(userID))
	}

	sessions := map[string]*Session{}
	r.mutex.RLock()
	for _, topic := range topics {
		if hub, ok := r.hubs[topic]; ok {
			hub.collect(sessions)
		}
	}
	r.mutex.RUnlock()

	for _, s := range sessions {
		if !s.Send(ev) {
			xcontext.Logger(ctx).Warnf("Session %s of user %s is too slow, close it", s.id, s.userID)
		}
	}
}

func (r *Router) broadcast(ev *event.EventRequest) {
	sessions := map[string]*Session{}
	r.mutex.RLock()
	for _, hub := range r.hubs {
		hub.collect(sessions)
	}
	r.mutex.RUnlock()

	for _, s := range sessions {
		if !s.Send(ev) {
		}
	}
}

// writeDirective must be called with the mutex held.
func (r *Router) writeDirective(ctx context.Context, d *directive.ClientDirective) {
	b, err := json.Marshal(d)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot marshal directive: %v", err)
		return
	}

	if err := r.engineClient.Write(b, false); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot write directive to notification engine: %v", err)
	}
}
