package config

import (
	"fmt"
	"os"
	"strings"
)

// Prompts holds the evaluator prompt templates. Each template uses a
// {text} placeholder for the message body.
type Prompts struct {
	Evaluate string
	Process  string
	Improve  string
}

// LoadPrompts reads prompt templates from the configured paths.
// The improve prompt is optional.
func (c *Config) LoadPrompts() (Prompts, error) {
	evaluate, err := readPrompt(c.PromptEvaluatePath)
	if err != nil {
		return Prompts{}, err
	}

	process, err := readPrompt(c.PromptProcessPath)
	if err != nil {
		return Prompts{}, err
	}

	var improve string

	if c.PromptImprovePath != "" {
		improve, err = readPrompt(c.PromptImprovePath)
		if err != nil {
			return Prompts{}, err
		}
	}

	return Prompts{Evaluate: evaluate, Process: process, Improve: improve}, nil
}

func readPrompt(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading prompt %s: %w", path, err)
	}

	return strings.TrimSpace(string(data)), nil
}
