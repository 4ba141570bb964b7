package recommend

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

// mockAgent implements Agent for tests.
type mockAgent struct {
	response    string
	err         error
	lastMessage string
}

func (m *mockAgent) Ask(_ context.Context, message string) (string, error) {
	m.lastMessage = message
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func TestRecommend(t *testing.T) {
	agent := &mockAgent{
		response: `[
			{"name":"Learn Go","desc":"Start with the tour","completed":false},
			{"name":"Build a project","desc":"","completed":true}
		]`,
	}
	svc := New(agent, zap.NewNop())

	cards, err := svc.Recommend(context.Background(), Query{
		Name:      "Alice",
		Major:     "CS",
		Location:  "Boston",
		Favorites: []string{"chess"},
		Goals:     []string{"SWE", "ML"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "User: Alice. Major: CS. Location: Boston. Interests: chess. Goals: SWE, ML"
	if agent.lastMessage != want {
		t.Errorf("unexpected prompt:\ngot:  %q\nwant: %q", agent.lastMessage, want)
	}

	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}
	if cards[0].Name != "Learn Go" || cards[0].Completed {
		t.Errorf("unexpected first card: %+v", cards[0])
	}
	if !cards[1].Completed {
		t.Errorf("expected second card completed: %+v", cards[1])
	}
}

func TestRecommend_EmptyQuery(t *testing.T) {
	agent := &mockAgent{response: "[]"}
	svc := New(agent, zap.NewNop())

	if _, err := svc.Recommend(context.Background(), Query{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if agent.lastMessage != "Generate personalized recommendations" {
		t.Errorf("unexpected fallback prompt: %q", agent.lastMessage)
	}
}

func TestRecommend_AgentError(t *testing.T) {
	agent := &mockAgent{err: errors.New("agent down")}
	svc := New(agent, zap.NewNop())

	if _, err := svc.Recommend(context.Background(), Query{}); err == nil {
		t.Fatal("expected error from agent")
	}
}

func TestRecommend_NonArrayResponse(t *testing.T) {
	agent := &mockAgent{response: `{"oops":true}`}
	svc := New(agent, zap.NewNop())

	if _, err := svc.Recommend(context.Background(), Query{}); err == nil {
		t.Fatal("expected error for non-array response")
	}
}

func TestRecommend_SkipsNonObjectItems(t *testing.T) {
	agent := &mockAgent{response: `["just a string", {"name":"Real card"}, 42]`}
	svc := New(agent, zap.NewNop())

	cards, err := svc.Recommend(context.Background(), Query{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cards) != 1 || cards[0].Name != "Real card" {
		t.Errorf("expected only the object item, got %+v", cards)
	}
}

func TestRecommend_MissingNameGetsDefault(t *testing.T) {
	agent := &mockAgent{response: `[{"desc":"no name here"}]`}
	svc := New(agent, zap.NewNop())

	cards, err := svc.Recommend(context.Background(), Query{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cards[0].Name != "Task 1" {
		t.Errorf("expected default name, got %q", cards[0].Name)
	}
}

func TestUpdateCard_OverridesAgentStatus(t *testing.T) {
	agent := &mockAgent{response: `[{"name":"Learn Go","completed":false}]`}
	svc := New(agent, zap.NewNop())
	ctx := context.Background()

	if err := svc.UpdateCard(ctx, "Learn Go", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cards, err := svc.Recommend(ctx, Query{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cards[0].Completed {
		t.Error("expected recorded completion to override the agent's status")
	}
}

func TestUpdateCard_EmptyName(t *testing.T) {
	svc := New(&mockAgent{}, zap.NewNop())

	if err := svc.UpdateCard(context.Background(), "  ", true); err == nil {
		t.Fatal("expected error for empty card name")
	}
}

func TestParseCompleted(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{`true`, true},
		{`false`, false},
		{`"true"`, true},
		{`"True"`, true},
		{`"false"`, false},
		{`"yes"`, false}, // unrecognized string variants stay false
		{`1`, true},
		{`0`, false},
		{`2.5`, true},
		{`null`, false},
		{`{"nested":true}`, false},
		{``, false},
	}

	for _, tc := range tests {
		if got := parseCompleted([]byte(tc.raw)); got != tc.want {
			t.Errorf("parseCompleted(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}
