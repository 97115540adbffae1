package ws

// MessageChat is an incoming chat send over the socket.
type MessageChat struct {
	ClientID string `json:"client_id"`
	Content  string `json:"content"`
}

func (msg *MessageChat) GetType() string {
	return "chat"
}

func (msg *MessageChat) Process(ctx *MessageContext) error {
	stored, err := ctx.ChatService.Send(ctx.SquadID, ctx.ProfileID, msg.ClientID, msg.Content)
	if err != nil {
		return err
	}

	ctx.Hub.BroadcastToSquad(ctx.SquadID, Frame("chat_message", stored.ToResponse()))
	return nil
}

// MessageRead carries viewer read marks; they are queued into the
// debounced batcher rather than written one by one.
type MessageRead struct {
	MessageIDs []uint `json:"message_ids"`
}

func (msg *MessageRead) GetType() string {
	return "read"
}

func (msg *MessageRead) Process(ctx *MessageContext) error {
	for _, messageID := range msg.MessageIDs {
		ctx.ReceiptBatcher.Mark(messageID, ctx.ProfileID)
	}
	return nil
}
