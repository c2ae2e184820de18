package enums

// MessageType classifies the payload of a chat message on the wire.
type MessageType string

const (
	MessageTypeConversation MessageType = "conversation"
	MessageTypeImage        MessageType = "image"
	MessageTypeAudio        MessageType = "audio"
	MessageTypeDocument     MessageType = "document"
)

var validMessageTypes = []MessageType{
	MessageTypeConversation,
	MessageTypeImage,
	MessageTypeAudio,
	MessageTypeDocument,
}

func (m MessageType) IsValid() bool {
	for _, candidate := range validMessageTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// OrDefault falls back to the generic conversation type.
func (m MessageType) OrDefault() MessageType {
	if m == "" {
		return MessageTypeConversation
	}
	return m
}
