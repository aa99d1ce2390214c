package chat

import (
	"fmt"
	"strings"

	"ragchat-api/internal/domain/entity"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter measures prompt text against the context budget.
type TokenCounter func(text string) int

// AssembledContext is everything the generator prompt is built from, plus the
// exact passage set that earned attribution.
type AssembledContext struct {
	DocContext string
	Included   []entity.RetrievedPassage
	History    []entity.ChatMessage
}

// ContextAssembler packs ranked passages and recent history into a bounded
// token budget. Same inputs always produce the same output.
type ContextAssembler struct {
	tokenBudget   int
	historyWindow int
	countTokens   TokenCounter
}

// NewContextAssembler counts tokens with the cl100k_base encoding; if the
// encoding cannot be loaded it falls back to a bytes/4 estimate.
func NewContextAssembler(tokenBudget, historyWindow int) *ContextAssembler {
	counter := approximateTokens
	if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
		counter = func(text string) int {
			return len(enc.Encode(text, nil, nil))
		}
	}
	return NewContextAssemblerWithCounter(tokenBudget, historyWindow, counter)
}

func NewContextAssemblerWithCounter(tokenBudget, historyWindow int, counter TokenCounter) *ContextAssembler {
	if tokenBudget <= 0 {
		tokenBudget = 3000
	}
	if historyWindow < 0 {
		historyWindow = 0
	}
	return &ContextAssembler{
		tokenBudget:   tokenBudget,
		historyWindow: historyWindow,
		countTokens:   counter,
	}
}

// Assemble packs passages highest-score-first until the budget is exhausted,
// never splitting a passage: the first one that does not fit ends packing.
// Passages dropped here get no attribution. The most recent historyWindow
// messages are then trimmed oldest-first into the remaining budget.
func (a *ContextAssembler) Assemble(passages []entity.RetrievedPassage, history []entity.ChatMessage) AssembledContext {
	var sb strings.Builder
	var included []entity.RetrievedPassage

	remaining := a.tokenBudget
	for i, passage := range passages {
		block := formatPassage(i+1, passage)
		cost := a.countTokens(block)
		if cost > remaining {
			break
		}
		sb.WriteString(block)
		remaining -= cost
		included = append(included, passage)
	}

	window := history
	if len(window) > a.historyWindow {
		window = window[len(window)-a.historyWindow:]
	}
	for len(window) > 0 {
		cost := 0
		for _, msg := range window {
			cost += a.countTokens(msg.Content)
		}
		if cost <= remaining {
			break
		}
		window = window[1:]
	}

	return AssembledContext{
		DocContext: sb.String(),
		Included:   included,
		History:    window,
	}
}

func formatPassage(n int, p entity.RetrievedPassage) string {
	if p.PageNumber > 0 {
		return fmt.Sprintf("[Source %d: %s, page %d]\n%s\n\n", n, p.DocumentName, p.PageNumber, p.Content)
	}
	return fmt.Sprintf("[Source %d: %s]\n%s\n\n", n, p.DocumentName, p.Content)
}

func approximateTokens(text string) int {
	return len(text)/4 + 1
}
