// Package recommend turns agent responses into recommendation cards.
package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Card is a single recommendation.
type Card struct {
	Name      string `json:"name"`
	Desc      string `json:"desc"`
	Completed bool   `json:"completed"`
}

// Query carries the profile fields used to build the agent prompt.
type Query struct {
	Name      string
	Major     string
	Location  string
	Favorites []string
	Goals     []string
}

// Service queries the agent and tracks card completion.
type Service struct {
	agent  Agent
	logger *zap.Logger

	mu        sync.RWMutex
	completed map[string]bool
}

// New creates a recommendation service.
func New(agent Agent, logger *zap.Logger) *Service {
	return &Service{
		agent:     agent,
		logger:    logger,
		completed: make(map[string]bool),
	}
}

// Recommend builds a prompt from the profile fields, asks the agent and
// parses the returned card list. Completion status recorded earlier via
// UpdateCard overrides what the agent returns.
func (s *Service) Recommend(ctx context.Context, q Query) ([]Card, error) {
	raw, err := s.agent.Ask(ctx, buildPrompt(q))
	if err != nil {
		return nil, fmt.Errorf("ask agent: %w", err)
	}

	cards, err := parseCards(raw, s.logger)
	if err != nil {
		return nil, fmt.Errorf("parse agent response: %w", err)
	}

	s.mu.RLock()
	for i := range cards {
		if done, ok := s.completed[cards[i].Name]; ok {
			cards[i].Completed = done
		}
	}
	s.mu.RUnlock()

	return cards, nil
}

// UpdateCard records a card's completion status.
func (s *Service) UpdateCard(_ context.Context, cardName string, completed bool) error {
	cardName = strings.TrimSpace(cardName)
	if cardName == "" {
		return fmt.Errorf("card name is required")
	}

	s.mu.Lock()
	s.completed[cardName] = completed
	s.mu.Unlock()
	return nil
}

// buildPrompt assembles the agent message the same way the profile renders:
// present fields only, joined with ". ".
func buildPrompt(q Query) string {
	var parts []string
	if q.Name != "" {
		parts = append(parts, "User: "+q.Name)
	}
	if q.Major != "" {
		parts = append(parts, "Major: "+q.Major)
	}
	if q.Location != "" {
		parts = append(parts, "Location: "+q.Location)
	}
	if len(q.Favorites) > 0 {
		parts = append(parts, "Interests: "+strings.Join(q.Favorites, ", "))
	}
	if len(q.Goals) > 0 {
		parts = append(parts, "Goals: "+strings.Join(q.Goals, ", "))
	}
	if len(parts) == 0 {
		return "Generate personalized recommendations"
	}
	return strings.Join(parts, ". ")
}

// rawCard accepts the loosely-typed agent output before validation.
type rawCard struct {
	Name      json.RawMessage `json:"name"`
	Desc      json.RawMessage `json:"desc"`
	Completed json.RawMessage `json:"completed"`
}

// parseCards parses the agent's JSON array. Non-object items are skipped
// with a warning; a non-array payload is an error.
func parseCards(raw string, logger *zap.Logger) ([]Card, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("agent response is not a JSON array: %w", err)
	}

	cards := make([]Card, 0, len(items))
	for idx, item := range items {
		var rc rawCard
		if err := json.Unmarshal(item, &rc); err != nil {
			logger.Warn("Skipping non-object agent card", zap.Int("index", idx))
			continue
		}

		name := stringOrDefault(rc.Name, fmt.Sprintf("Task %d", idx+1))
		cards = append(cards, Card{
			Name:      strings.TrimSpace(name),
			Desc:      strings.TrimSpace(stringOrDefault(rc.Desc, "")),
			Completed: parseCompleted(rc.Completed),
		})
	}
	return cards, nil
}

// stringOrDefault accepts a string value, stringifies other scalars, and
// falls back to def when the field is absent.
func stringOrDefault(raw json.RawMessage, def string) string {
	if len(raw) == 0 || string(raw) == "null" {
		return def
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// parseCompleted maps the agent's loosely-typed completed field to a bool.
// Accepted variants: JSON bool, "true"/"false" strings (case-insensitive),
// and numbers (non-zero means completed). Anything else is false.
func parseCompleted(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.EqualFold(strings.TrimSpace(s), "true")
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n != 0
	}

	return false
}
