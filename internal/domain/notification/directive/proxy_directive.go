package directive

// MARK READ
type ProxyMarkReadDirective struct {
	Kind           string `json:"kind"`
	ConversationID string `json:"conversation_id"`
}

func NewMarkReadDirective(kind, conversationID string) *ClientDirective {
	return &ClientDirective{
		Op:   ProxyMarkReadDirectiveOp,
		Data: ProxyMarkReadDirective{Kind: kind, ConversationID: conversationID},
	}
}
