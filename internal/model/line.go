package model

type LineWebhookBody struct {
	Destination string      `json:"destination"`
	Events      []LineEvent `json:"events"`
}

type LineEvent struct {
	Type       string       `json:"type"`
	ReplyToken string       `json:"replyToken"`
	Timestamp  int64        `json:"timestamp"`
	Source     LineSource   `json:"source"`
	Message    *LineMessage `json:"message,omitempty"`
}

type LineSource struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

type LineMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type LineReplyMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
