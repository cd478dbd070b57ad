package main

import (
	"fmt"
	"io"

	"persona-stack/internal/models"
)

func printCounts(out io.Writer, title string, counts []models.FieldCount, limit int) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s:\n", title)
	for i, c := range counts {
		if i == limit {
			break
		}
		fmt.Fprintf(out, "  - %s (%d)\n", c.Text, c.Frequency)
	}
}

func printPersona(out io.Writer, i int, p *models.BuyerPersona) {
	fmt.Fprintf(out, "\n%d. %s  [%s priority, %d%% of audience]\n", i+1, p.Name, p.PriorityLevel, p.AudiencePercentage)
	fmt.Fprintf(out, "   %s, %s\n", p.AgeRange, p.Occupation)
	if p.Description != "" {
		fmt.Fprintf(out, "   %s\n", p.Description)
	}
	for _, f := range []struct {
		label string
		items []string
	}{
		{"Motivations", p.Motivations},
		{"Pain points", p.PainPoints},
		{"Dreams", p.Dreams},
		{"Objections", p.Objections},
		{"Channels", p.PreferredChannels},
	} {
		if len(f.items) > 0 {
			fmt.Fprintf(out, "   %s: %v\n", f.label, f.items)
		}
	}
	if p.Behavior != "" {
		fmt.Fprintf(out, "   Behavior: %s\n", p.Behavior)
	}
	if p.RecommendedStrategy != "" {
		fmt.Fprintf(out, "   Strategy: %s\n", p.RecommendedStrategy)
	}
}
