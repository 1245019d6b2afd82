package eliza

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// actorName resolves a user id to a display name, falling back to "Unknown
// User" so formatted output is always total.
func actorName(actors []*Actor, id uuid.UUID) string {
	for _, actor := range actors {
		if actor.ID == id {
			return actor.Name
		}
	}
	return "Unknown User"
}

// formatActors renders the room's participants one per line.
func formatActors(actors []*Actor) string {
	lines := make([]string, 0, len(actors))
	for _, actor := range actors {
		if actor.Details != "" {
			lines = append(lines, fmt.Sprintf("%s: %s", actor.Name, actor.Details))
			continue
		}
		lines = append(lines, actor.Name)
	}
	return strings.Join(lines, "\n")
}

// formatMessages renders a conversation transcript, oldest first, with the
// chosen action in parentheses and attachment titles appended.
func formatMessages(messages []*Memory, actors []*Actor) string {
	lines := make([]string, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Content == nil {
			continue
		}
		var b strings.Builder
		b.WriteString(actorName(actors, m.UserID))
		b.WriteString(": ")
		b.WriteString(m.Content.Text)
		if m.Content.Action != "" && m.Content.Action != "NONE" {
			fmt.Fprintf(&b, " (%s)", m.Content.Action)
		}
		for _, a := range m.Content.Attachments {
			fmt.Fprintf(&b, " (Attachment: %s)", a.Title)
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

// formatPosts renders memories in a post/thread style with explicit ids so
// reply chains stay legible outside a chat transcript.
func formatPosts(messages []*Memory, actors []*Actor) string {
	lines := make([]string, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Content == nil || m.Content.Text == "" {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Name: %s\n", actorName(actors, m.UserID))
		fmt.Fprintf(&b, "ID: %s\n", m.ID)
		if m.Content.InReplyTo != nil {
			fmt.Fprintf(&b, "In reply to: %s\n", *m.Content.InReplyTo)
		}
		fmt.Fprintf(&b, "Text:\n%s", m.Content.Text)
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n\n")
}

// formatGoals renders goals and their objectives as a checklist.
func formatGoals(goals []*Goal) string {
	lines := make([]string, 0, len(goals))
	for _, goal := range goals {
		var b strings.Builder
		fmt.Fprintf(&b, "Goal: %s (%s)", goal.Name, goal.Status)
		for _, objective := range goal.Objectives {
			mark := " "
			if objective.Completed {
				mark = "x"
			}
			fmt.Fprintf(&b, "\n- [%s] %s", mark, objective.Description)
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

// formatKnowledge renders retrieved knowledge excerpts as a block list.
func formatKnowledge(items []string) string {
	return strings.Join(items, "\n")
}

// formatAttachments renders attachment descriptions for the state.
func formatAttachments(messages []*Memory) string {
	var lines []string
	for _, m := range messages {
		if m.Content == nil {
			continue
		}
		for _, a := range m.Content.Attachments {
			lines = append(lines, fmt.Sprintf("ID: %s\nName: %s\nURL: %s\nDescription: %s\nText: %s",
				a.ID, a.Title, a.URL, a.Description, a.Text))
		}
	}
	return strings.Join(lines, "\n\n")
}

func formatActionNames(actions []*Action) string {
	names := make([]string, 0, len(actions))
	for _, action := range actions {
		names = append(names, action.Name)
	}
	return strings.Join(names, ", ")
}

func formatActions(actions []*Action) string {
	lines := make([]string, 0, len(actions))
	for _, action := range actions {
		lines = append(lines, fmt.Sprintf("%s: %s", action.Name, action.Description))
	}
	return strings.Join(lines, ",\n")
}

// formatActionExamples renders each action's example exchanges.
func formatActionExamples(actions []*Action) string {
	var lines []string
	for _, action := range actions {
		for _, exchange := range action.Examples {
			var b strings.Builder
			for i, turn := range exchange {
				if i > 0 {
					b.WriteString("\n")
				}
				text := ""
				actionName := ""
				if turn.Content != nil {
					text = turn.Content.Text
					actionName = turn.Content.Action
				}
				fmt.Fprintf(&b, "%s: %s", turn.User, text)
				if actionName != "" {
					fmt.Fprintf(&b, " (%s)", actionName)
				}
			}
			lines = append(lines, b.String())
		}
	}
	return strings.Join(lines, "\n\n")
}

func formatEvaluatorNames(evaluators []*Evaluator) string {
	names := make([]string, 0, len(evaluators))
	for _, evaluator := range evaluators {
		names = append(names, evaluator.Name)
	}
	return strings.Join(names, ", ")
}

func formatEvaluators(evaluators []*Evaluator) string {
	lines := make([]string, 0, len(evaluators))
	for _, evaluator := range evaluators {
		lines = append(lines, fmt.Sprintf("%s: %s", evaluator.Name, evaluator.Description))
	}
	return strings.Join(lines, ",\n")
}

// formatEvaluatorExamples renders each evaluator's worked examples.
func formatEvaluatorExamples(evaluators []*Evaluator) string {
	var lines []string
	for _, evaluator := range evaluators {
		for _, example := range evaluator.Examples {
			var b strings.Builder
			fmt.Fprintf(&b, "Context:\n%s\n\nMessages:\n", example.Context)
			for _, turn := range example.Messages {
				text := ""
				if turn.Content != nil {
					text = turn.Content.Text
				}
				fmt.Fprintf(&b, "%s: %s\n", turn.User, text)
			}
			fmt.Fprintf(&b, "\nOutcome:\n%s", example.Outcome)
			lines = append(lines, b.String())
		}
	}
	return strings.Join(lines, "\n\n")
}
