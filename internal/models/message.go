package models

// Sender identifies who authored a conversation entry.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one entry in the conversation log. ID is assigned locally and is
// never exchanged with the server.
type Message struct {
	ID     string `json:"id"`
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

func UserMessage(text string) Message {
	return Message{Sender: SenderUser, Text: text}
}

func BotMessage(text string) Message {
	return Message{Sender: SenderBot, Text: text}
}

// ConnectionStatus is the lifecycle state of the realtime channel.
type ConnectionStatus int

const (
	StatusConnecting ConnectionStatus = iota
	StatusConnected
	StatusDisconnected
	StatusFailed
)

func (s ConnectionStatus) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Text is the status line shown to the user. The failed text mentions a retry
// even though the client never reconnects on its own.
func (s ConnectionStatus) Text() string {
	switch s {
	case StatusConnecting:
		return "Connecting..."
	case StatusConnected:
		return "Connected"
	case StatusDisconnected:
		return "Disconnected"
	case StatusFailed:
		return "Connection error - retrying..."
	default:
		return ""
	}
}
