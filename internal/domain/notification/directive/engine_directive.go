package directive

// REGISTER TOPIC
type EngineRegisterTopicDirective struct {
	Topic string `json:"topic"`
}

func NewRegisterTopicDirective(topic string) *ClientDirective {
	return &ClientDirective{
		Op:   EngineRegisterTopicDirectiveOp,
		Data: EngineRegisterTopicDirective{Topic: topic},
	}
}

// UNREGISTER TOPIC
type EngineUnregisterTopicDirective struct {
	Topic string `json:"topic"`
}

func NewUnregisterTopicDirective(topic string) *ClientDirective {
	return &ClientDirective{
		Op:   EngineUnregisterTopicDirectiveOp,
		Data: EngineUnregisterTopicDirective{Topic: topic},
	}
}
