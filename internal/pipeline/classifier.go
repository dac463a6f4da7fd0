// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/kusari-oss/cadsmith/internal/core/condition"
	"github.com/kusari-oss/cadsmith/internal/core/config"
)

// Classifier decides whether a requirement describes a multi-part assembly.
// Implementations are heuristics; a failing classifier is treated as "no".
type Classifier interface {
	RequiresAssembly(requirement string) (bool, error)
}

// KeywordClassifier matches case-insensitive substrings
type KeywordClassifier struct {
	keywords []string
}

// DefaultAssemblyKeywords covers English spellings and the Russian stem for "assembly"
var DefaultAssemblyKeywords = []string{"assembly", "assemblies", "сборк"}

// NewKeywordClassifier creates a classifier; no keywords means the defaults
func NewKeywordClassifier(keywords ...string) *KeywordClassifier {
	if len(keywords) == 0 {
		keywords = DefaultAssemblyKeywords
	}
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		lowered = append(lowered, strings.ToLower(k))
	}
	return &KeywordClassifier{keywords: lowered}
}

// RequiresAssembly implements Classifier
func (k *KeywordClassifier) RequiresAssembly(requirement string) (bool, error) {
	lowered := strings.ToLower(requirement)
	for _, keyword := range k.keywords {
		if strings.Contains(lowered, keyword) {
			return true, nil
		}
	}
	return false, nil
}

// CELClassifier evaluates a boolean CEL expression over the variables
// requirement (original text) and lowered (lower-cased text)
type CELClassifier struct {
	expression string
	program    cel.Program
}

// NewCELClassifier compiles expression
func NewCELClassifier(expression string) (*CELClassifier, error) {
	evaluator, err := condition.NewCELEvaluator("requirement", "lowered")
	if err != nil {
		return nil, err
	}
	program, err := evaluator.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid assembly expression %q: %w", expression, err)
	}
	return &CELClassifier{expression: expression, program: program}, nil
}

// RequiresAssembly implements Classifier
func (c *CELClassifier) RequiresAssembly(requirement string) (bool, error) {
	return condition.Evaluate(c.program, map[string]interface{}{
		"requirement": requirement,
		"lowered":     strings.ToLower(requirement),
	})
}

// NewClassifier picks the CEL classifier when an expression is configured
func NewClassifier(cfg config.PipelineConfig) (Classifier, error) {
	if strings.TrimSpace(cfg.AssemblyExpression) != "" {
		return NewCELClassifier(cfg.AssemblyExpression)
	}
	return NewKeywordClassifier(cfg.AssemblyKeywords...), nil
}
