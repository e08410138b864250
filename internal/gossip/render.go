// Package gossip renders raw per-peer stage outputs into short feed messages.
package gossip

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const maxMessageRunes = 280

// Renderer formats one question's output for a stage.
type Renderer func(peerID, question string, timestamp float64, output map[string]any) string

// Renderers is indexed by stage.
var Renderers = []Renderer{
	renderAnswer,
	renderCritique,
	renderSummary,
}

var (
	identifyTag  = regexp.MustCompile(`(?s)<identify>(.*?)</identify>`)
	summarizeTag = regexp.MustCompile(`(?s)<summarize_feedback>(.*?)</summarize_feedback>`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// Render dispatches to the renderer for stage, falling back to a placeholder
// for stages without one.
func Render(stage int, peerID, question string, timestamp float64, output map[string]any) string {
	if stage < 0 || stage >= len(Renderers) {
		return fmt.Sprintf("Cannot render output for unknown stage %d", stage)
	}
	return Renderers[stage](peerID, question, timestamp, output)
}

// MessageID is the stable id of a feed message for one peer's answer to
// question at (round, stage).
func MessageID(peerID string, round, stage int, question string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%d_%d_%s", peerID, round, stage, question)))
	return hex.EncodeToString(sum[:])
}

func renderAnswer(_, question string, _ float64, output map[string]any) string {
	answer := firstString(output, "answer", "agent_answers", "response")
	return fmt.Sprintf("%s...Answer: %s", truncate(question), truncate(answer))
}

func renderCritique(_, question string, _ float64, output map[string]any) string {
	text := firstString(output, "agent_opinion", "critic", "answer")
	if m := identifyTag.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	return fmt.Sprintf("%s...Identify: %s", truncate(question), truncate(text))
}

func renderSummary(_, question string, _ float64, output map[string]any) string {
	text := firstString(output, "final_agent_decision", "summary", "answer")
	if m := summarizeTag.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	return fmt.Sprintf("%s...Summary: %s", truncate(question), truncate(text))
}

// firstString returns the first non-empty value among keys. Nested maps
// (keyed by agent) are flattened by taking their values in key order.
func firstString(output map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := output[k]
		if !ok {
			continue
		}
		if s := stringify(v); s != "" {
			return s
		}
	}
	return ""
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if s := stringify(t[k]); s != "" {
				return s
			}
		}
	case []any:
		for _, item := range t {
			if s := stringify(item); s != "" {
				return s
			}
		}
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
	return ""
}

func truncate(s string) string {
	s = strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
	r := []rune(s)
	if len(r) <= maxMessageRunes {
		return s
	}
	return string(r[:maxMessageRunes]) + "..."
}
