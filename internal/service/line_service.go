package service

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"pack-portal/internal/metrics"
	"pack-portal/internal/model"
)

//go:embed line_replies.yaml
var defaultLineReplies []byte

// ReplyRule answers a text message containing any of Keywords.
type ReplyRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Reply    string   `yaml:"reply"`
}

type ReplyRules struct {
	Welcome string      `yaml:"welcome"`
	Default string      `yaml:"default"`
	Rules   []ReplyRule `yaml:"rules"`
}

// ParseReplyRules decodes a YAML rule set. Keywords are matched in lower case.
func ParseReplyRules(data []byte) (ReplyRules, error) {
	var rules ReplyRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return ReplyRules{}, fmt.Errorf("decode reply rules: %w", err)
	}

	if strings.TrimSpace(rules.Default) == "" || strings.TrimSpace(rules.Welcome) == "" {
		return ReplyRules{}, fmt.Errorf("reply rules need a welcome and a default reply")
	}

	for i, rule := range rules.Rules {
		if len(rule.Keywords) == 0 || strings.TrimSpace(rule.Reply) == "" {
			return ReplyRules{}, fmt.Errorf("reply rule %d (%s) needs keywords and a reply", i, rule.Name)
		}
		for j, keyword := range rule.Keywords {
			rules.Rules[i].Keywords[j] = strings.ToLower(keyword)
		}
	}

	return rules, nil
}

func DefaultReplyRules() (ReplyRules, error) {
	return ParseReplyRules(defaultLineReplies)
}

// Match returns the reply of the first rule with a keyword contained in text.
func (r ReplyRules) Match(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range r.Rules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(lower, keyword) {
				return rule.Reply
			}
		}
	}

	return r.Default
}

type lineReplier interface {
	Reply(ctx context.Context, replyToken string, messages []model.LineReplyMessage) error
}

type LineService struct {
	replier lineReplier
	rules   ReplyRules
}

func NewLineService(replier lineReplier, rules ReplyRules) *LineService {
	return &LineService{replier: replier, rules: rules}
}

// HandleEvents replies to text messages and follow events. Reply failures are
// logged and do not stop the remaining events.
func (s *LineService) HandleEvents(ctx context.Context, body model.LineWebhookBody) {
	for _, evt := range body.Events {
		metrics.RecordLineEvent(evt.Type)
		slog.Debug("processing LINE event", "type", evt.Type, "line_user_id", evt.Source.UserID)

		var reply string
		switch {
		case evt.Type == "message" && evt.Message != nil && evt.Message.Type == "text":
			reply = s.rules.Match(evt.Message.Text)
		case evt.Type == "follow":
			reply = s.rules.Welcome
		default:
			continue
		}

		if evt.ReplyToken == "" {
			continue
		}

		messages := []model.LineReplyMessage{{Type: "text", Text: reply}}
		if err := s.replier.Reply(ctx, evt.ReplyToken, messages); err != nil {
			slog.Error("LINE reply failed", "type", evt.Type, "error", err)
		}
	}
}
