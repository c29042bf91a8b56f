// Package transcript parses host JSONL transcripts into ordered messages
// for idle-time pattern extraction.
package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Message is one parsed transcript message.
type Message struct {
	Role string // "user" or "assistant"
	Text string
}

// rawEntry is a single line in a host JSONL transcript.
type rawEntry struct {
	Type    string          `json:"type"` // "user", "assistant", "system"
	Message json.RawMessage `json:"message"`
}

type rawMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"` // string or []contentItem
}

// contentItem is a single content block (text, tool_use, tool_result).
type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

var systemReminderRe = regexp.MustCompile(`<system-reminder>[\s\S]*?</system-reminder>`)

// ParseFile reads a JSONL transcript file and returns parsed messages.
func ParseFile(path string) ([]Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	var msgs []Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB line buffer

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		msg, err := parseLine(line)
		if err != nil {
			continue // skip malformed lines
		}
		if msg != nil {
			msgs = append(msgs, *msg)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan transcript: %w", err)
	}

	return msgs, nil
}

// ParseLines parses transcript content from a string (for testing).
func ParseLines(content string) []Message {
	var msgs []Message
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		msg, err := parseLine([]byte(line))
		if err != nil {
			continue
		}
		if msg != nil {
			msgs = append(msgs, *msg)
		}
	}
	return msgs
}

func parseLine(line []byte) (*Message, error) {
	var entry rawEntry
	if err := json.Unmarshal(line, &entry); err != nil {
		return nil, err
	}

	if entry.Message == nil {
		return nil, nil
	}
	if entry.Type != "user" && entry.Type != "assistant" {
		return nil, nil
	}

	var msg rawMessage
	if err := json.Unmarshal(entry.Message, &msg); err != nil {
		return nil, err
	}

	text := extractText(msg.Content)
	text = systemReminderRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	// Skip noise: tiny fragments and raw tool payloads.
	if len(text) < 5 {
		return nil, nil
	}
	if strings.HasPrefix(text, "{") {
		return nil, nil
	}

	return &Message{Role: entry.Type, Text: text}, nil
}

// extractText handles the polymorphic content field.
// It may be a plain string or an array of content items.
func extractText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var items []contentItem
	if err := json.Unmarshal(raw, &items); err == nil {
		var texts []string
		for _, item := range items {
			if item.Type == "text" && item.Text != "" {
				texts = append(texts, item.Text)
			}
		}
		return strings.Join(texts, "\n")
	}

	return ""
}

// CountMessages returns the number of messages with the given role;
// an empty role counts everything.
func CountMessages(msgs []Message, role string) int {
	if role == "" {
		return len(msgs)
	}
	count := 0
	for _, m := range msgs {
		if m.Role == role {
			count++
		}
	}
	return count
}
