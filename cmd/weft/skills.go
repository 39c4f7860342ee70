package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/weftworks/weft/pkg/workflow"
)

var positiveWords = map[string]bool{
	"good": true, "great": true, "excellent": true, "love": true,
	"happy": true, "wonderful": true, "best": true, "amazing": true,
}

var negativeWords = map[string]bool{
	"bad": true, "terrible": true, "awful": true, "hate": true,
	"sad": true, "worst": true, "poor": true, "horrible": true,
}

// registerBuiltinSkills registers the demo skills the bare server ships
// with. Applications embedding the server register their own.
func registerBuiltinSkills(reg *workflow.Registry) error {
	echo := workflow.NewFuncExecutable("echo", "Echo the given message back.",
		func(ctx context.Context, ec *workflow.Context) error {
			msg, _ := ec.Get("message")
			ec.Set("echo", msg)
			return nil
		}).
		WithInputs(workflow.InputSpec{Name: "message", Type: "string", Description: "Message to echo", Required: true}).
		WithCategory(workflow.CategoryGeneral)

	analysis := workflow.NewFuncExecutable("text_analysis", "Analyze text: word count and naive sentiment.",
		func(ctx context.Context, ec *workflow.Context) error {
			raw, ok := ec.Get("text")
			if !ok {
				return fmt.Errorf("parameter %q is required", "text")
			}
			text, ok := raw.(string)
			if !ok {
				return fmt.Errorf("parameter %q must be a string", "text")
			}

			words := strings.Fields(text)
			score := 0
			for _, w := range words {
				w = strings.ToLower(strings.Trim(w, ".,!?;:"))
				if positiveWords[w] {
					score++
				}
				if negativeWords[w] {
					score--
				}
			}

			sentiment := "neutral"
			if score > 0 {
				sentiment = "positive"
			} else if score < 0 {
				sentiment = "negative"
			}

			ec.Set("word_count", len(words))
			ec.Set("sentiment", sentiment)
			ec.Set("score", score)
			return nil
		}).
		WithInputs(workflow.InputSpec{Name: "text", Type: "string", Description: "Text to analyze", Required: true}).
		WithCategory(workflow.CategoryData)

	for _, exec := range []workflow.Executable{echo, analysis} {
		if err := reg.Register(exec.Name(), exec); err != nil {
			return err
		}
	}
	return nil
}
