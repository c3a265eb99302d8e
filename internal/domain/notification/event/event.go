package event

import (
	"time"

	"github.com/mitchellh/mapstructure"
)

type Event interface {
	Op() string
}

// Metadata tells the engine who receives the event.
type Metadata struct {
	ToChannel string   `json:"to_channel,omitempty"`
	ToUsers   []string `json:"to_users,omitempty"`
}

// PartitionKey keeps the events of one audience in order on the queue.
func (m Metadata) PartitionKey() string {
	if m.ToChannel != "" {
		return ChannelTopic(m.ToChannel)
	}

	if len(m.ToUsers) > 0 {
		return UserTopic(m.ToUsers[0])
	}

	return ""
}

type EventRequest struct {
	Op       string   `json:"o"`
	Data     any      `json:"d"`
	Metadata Metadata `json:"m"`
}

type EventResponse struct {
	Op   string `json:"o"`
	Seq  int64  `json:"s"`
	Data any    `json:"d"`
}

func New(ev Event, metadata Metadata) *EventRequest {
	return &EventRequest{
		Op:       ev.Op(),
		Data:     ev,
		Metadata: metadata,
	}
}

func Format(event *EventRequest, seq int64) *EventResponse {
	return &EventResponse{
		Op:   event.Op,
		Seq:  seq,
		Data: event.Data,
	}
}

// Decode fills out with the data of an event. The data is either the typed
// event, when it never left the process, or the generic map produced by
// decoding JSON.
func Decode(data any, out Event) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		TagName:    "json",
		Result:     out,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(data)
}

func ChannelTopic(channelID string) string {
	return "channel:" + channelID
}

func UserTopic(userID string) string {
	return "user:" + userID
}
