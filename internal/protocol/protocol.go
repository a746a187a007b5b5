// Package protocol translates between raw realtime frames and typed events.
package protocol

import (
	"encoding/json"
	"strings"

	"smart-spend/internal/models"
)

const (
	TypeHistory = "history"
	TypeUpdate  = "update"
	TypeError   = "error"

	ErrorPrefix        = "Error: "
	MalformedFrameText = "Error processing message"
)

type historyItem struct {
	Message  string `json:"message"`
	Response string `json:"response"`
}

// Decode interprets one inbound frame. It never fails: anything it cannot
// interpret becomes a bot-visible message.
func Decode(raw string) models.ServerEvent {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil || fields == nil {
		return models.ServerEvent{
			Kind:     models.EventRaw,
			Messages: []models.Message{models.BotMessage(raw)},
		}
	}

	var typ string
	if err := json.Unmarshal(fields["type"], &typ); err != nil {
		return malformed()
	}

	switch typ {
	case TypeHistory:
		return decodeHistory(fields["data"])
	case TypeUpdate:
		text, ok := decodeText(fields["data"])
		if !ok {
			return malformed()
		}
		var isExpense bool
		if v, present := fields["is_expense"]; present {
			if err := json.Unmarshal(v, &isExpense); err != nil {
				return malformed()
			}
		}
		return models.ServerEvent{
			Kind:      models.EventUpdate,
			Messages:  []models.Message{models.BotMessage(text)},
			IsExpense: isExpense,
		}
	case TypeError:
		text, ok := decodeText(fields["data"])
		if !ok {
			return malformed()
		}
		return models.ServerEvent{
			Kind:     models.EventError,
			Messages: []models.Message{models.BotMessage(ErrorPrefix + text)},
		}
	default:
		return malformed()
	}
}

// decodeHistory flattens newest-first pairs into a chronological list.
func decodeHistory(data json.RawMessage) models.ServerEvent {
	var items []historyItem
	if len(data) > 0 {
		if err := json.Unmarshal(data, &items); err != nil {
			return malformed()
		}
	}

	messages := make([]models.Message, 0, len(items)*2)
	for i := len(items) - 1; i >= 0; i-- {
		messages = append(messages,
			models.UserMessage(items[i].Message),
			models.BotMessage(items[i].Response),
		)
	}
	return models.ServerEvent{Kind: models.EventHistory, Messages: messages}
}

func decodeText(data json.RawMessage) (string, bool) {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return "", false
	}
	return text, true
}

func malformed() models.ServerEvent {
	return models.ServerEvent{
		Kind:     models.EventMalformed,
		Messages: []models.Message{models.BotMessage(MalformedFrameText)},
	}
}

// Encode prepares user input for transmission. ok is false when the input is
// blank and nothing must be sent.
func Encode(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", false
	}
	return trimmed, true
}
