// Package similarity scores the structural fidelity of an AI translation
// against its source — the hallucination detector.
//
// The score is a deterministic, explainable heuristic over markdown structure
// counts. Trusting a second AI call to judge the first is exactly the failure
// mode this avoids.
package similarity

import (
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Scoring weights.
const (
	headingPenalty   = 20
	codeBlockPenalty = 15
	linkPenalty      = 10
	lengthPenalty    = 25

	// ScoreThreshold is the minimum passing score.
	ScoreThreshold = 60
	// MaxIssues is the maximum tolerated issue count.
	MaxIssues = 2

	// Length ratio bounds.
	minLengthRatio = 0.5
	maxLengthRatio = 1.5
)

// Counts holds the structural element counts of one body.
type Counts struct {
	Headings   int
	CodeBlocks int
	Links      int
}

// Report is the outcome of one structural comparison.
type Report struct {
	Source      Counts
	Translated  Counts
	LengthRatio float64

	Score           int
	Issues          []string
	IsHallucination bool
}

// Count parses body as markdown and counts headings, fenced code blocks, and
// links.
func Count(body string) Counts {
	doc := goldmark.New().Parser().Parse(text.NewReader([]byte(body)))

	var c Counts
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindHeading:
			c.Headings++
		case ast.KindFencedCodeBlock:
			c.CodeBlocks++
		case ast.KindLink, ast.KindAutoLink:
			c.Links++
		}
		return ast.WalkContinue, nil
	})
	return c
}

// Analyze compares source and translated bodies. extraIssues carries
// integrity signals found upstream (dropped sentinel tokens); they count
// toward the issue limit but carry no score penalty of their own.
func Analyze(source, translated string, extraIssues []string) *Report {
	rep := &Report{
		Source:     Count(source),
		Translated: Count(translated),
		Score:      100,
	}
	rep.Issues = append(rep.Issues, extraIssues...)

	if rep.Source.Headings != rep.Translated.Headings {
		rep.Score -= headingPenalty
		rep.Issues = append(rep.Issues, fmt.Sprintf("heading count changed: %d → %d",
			rep.Source.Headings, rep.Translated.Headings))
	}
	if rep.Source.CodeBlocks != rep.Translated.CodeBlocks {
		rep.Score -= codeBlockPenalty
		rep.Issues = append(rep.Issues, fmt.Sprintf("code block count changed: %d → %d",
			rep.Source.CodeBlocks, rep.Translated.CodeBlocks))
	}
	if rep.Source.Links != rep.Translated.Links {
		rep.Score -= linkPenalty
		rep.Issues = append(rep.Issues, fmt.Sprintf("link count changed: %d → %d",
			rep.Source.Links, rep.Translated.Links))
	}

	if len(source) > 0 {
		rep.LengthRatio = float64(len(translated)) / float64(len(source))
	} else {
		rep.LengthRatio = 1
	}
	if rep.LengthRatio > maxLengthRatio || rep.LengthRatio < minLengthRatio {
		rep.Score -= lengthPenalty
		rep.Issues = append(rep.Issues, fmt.Sprintf("length ratio %.2f outside [%.1f, %.1f]",
			rep.LengthRatio, minLengthRatio, maxLengthRatio))
	}

	if rep.Score < 0 {
		rep.Score = 0
	}
	rep.IsHallucination = rep.Score < ScoreThreshold || len(rep.Issues) > MaxIssues
	return rep
}
