package domain

import (
	"fmt"
	"sort"
)

// DefaultReminderText is used for every gradient step without a custom text.
const DefaultReminderText = "💧 Time to drink some water!"

// Progress returns the percentage of goal reached and the remaining amount.
func Progress(totalML, goalML int) (percent, remainingML int) {
	if goalML > 0 {
		percent = totalML * 100 / goalML
	}
	remainingML = goalML - totalML
	if remainingML < 0 {
		remainingML = 0
	}
	return percent, remainingML
}

// ReminderHeadline picks the text for a gradient step. An exact match wins;
// otherwise the closest configured lower step is used, then the default.
func ReminderHeadline(texts map[int]string, step int) string {
	if t, ok := texts[step]; ok && t != "" {
		return t
	}
	steps := make([]int, 0, len(texts))
	for s := range texts {
		if s < step {
			steps = append(steps, s)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(steps)))
	for _, s := range steps {
		if texts[s] != "" {
			return texts[s]
		}
	}
	return DefaultReminderText
}

// ReminderText composes the progress notification sent at a firing.
func ReminderText(p *Profile, step, totalML int) string {
	percent, remaining := Progress(totalML, p.DailyGoalML)
	return fmt.Sprintf("%s\n\n📊 Today: %d/%d (%d%%)\nRemaining: %dml\n\n📝 Send a number (e.g. 200) to log a drink.",
		ReminderHeadline(p.ReminderTexts, step),
		totalML, p.DailyGoalML, percent, remaining,
	)
}
