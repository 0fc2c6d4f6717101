package lessons

import (
	"fmt"
	"strings"
)

const lessonSystemPrompt = `You are a patient calculus tutor preparing students for competitive entrance exams. A student keeps struggling with a topic because a prerequisite concept is weak. Write a short, focused lesson on the prerequisite only.`

func buildLessonUserMessage(req Request, items int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Prerequisite to teach: %s\n", req.WeakConcept.DisplayName())
	if req.WeakConcept.Topic != "" {
		fmt.Fprintf(&b, "Topic: %s\n", req.WeakConcept.Topic)
	}
	fmt.Fprintf(&b, "The student is struggling with: %s\n", req.TriggerConcept.DisplayName())
	fmt.Fprintf(&b, "Student skill rating on the prerequisite: %.0f (1000 is an average beginner)\n", req.WeakRating)

	b.WriteString("\nLearner Notes:\n")
	if strings.TrimSpace(req.LearnerContext) == "" {
		b.WriteString("None\n")
	} else {
		b.WriteString(req.LearnerContext)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, `
Instructions:
1. Explain the prerequisite in 4-6 sentences, connecting it to why it matters for %s.
2. Show one complete worked example with numbered steps.
3. Write exactly %d guided practice items that build from easy to moderate. Each needs a single correct answer and a hint that does not reveal it.
4. Use plain ASCII math: ^ for powers, * for multiplication, sqrt() and integral() spelled out. No LaTeX.`,
		req.TriggerConcept.DisplayName(), items)

	return b.String()
}

const summarySystemPrompt = `You are summarizing a student's recent practice behavior for a tutoring system. The summary is used internally to personalize lessons.`

func buildSummaryUserMessage(notes []string) string {
	var b strings.Builder
	b.WriteString("Practice notes, oldest first:\n")
	for _, n := range notes {
		fmt.Fprintf(&b, "- %s\n", n)
	}
	b.WriteString(`
Instructions:
Summarize in 2-3 sentences. Mention which concepts are weak, whether the student tends to be slow or rushed, and whether they depend on hints. Be factual; no encouragement.`)
	return b.String()
}
