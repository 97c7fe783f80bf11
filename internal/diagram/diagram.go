// Package diagram folds per-file summaries into one repository-level
// Mermaid security/data-flow diagram through a generate-validate-refine
// loop. The artifact's existence is guaranteed: any failure falls back
// to a fixed, already-valid template.
package diagram

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

// promptBudget caps the serialized summaries embedded in a prompt,
// approximating a 128k-token input limit at ~4 chars per token.
const promptBudget = 32000

// requiredMarkers must all appear in a draft for it to be accepted:
// the flow declaration, a style class, a directed edge, and a grouping.
var requiredMarkers = []string{"flowchart", "classDef", "-->", "subgraph"}

// FallbackTemplate is the hard-coded diagram returned when generation
// or validation fails at any point. It satisfies every required marker.
const FallbackTemplate = `flowchart TD
    subgraph repo[Repository]
        src[Source Files]
        conf[Configuration]
    end
    subgraph pipeline[Analysis Pipeline]
        scanner[Scanner]
        llm[Generation Service]
    end
    subgraph artifacts[Artifacts]
        docs[Documentation]
        summary[Repository Summary]
    end
    src --> scanner
    conf --> scanner
    scanner --> llm
    llm --> docs
    llm --> summary
    classDef external fill:#f4a261,stroke:#333
    class llm external
`

// Generator is the generation capability consumed by the loop; empty
// output means "no result".
type Generator interface {
	Generate(ctx context.Context, prompt, model string) string
}

// Result carries the diagram source plus degradation metadata.
type Result struct {
	Diagram string
	// SampledPercent is the share of summaries that fit the prompt
	// budget, 100 when nothing was dropped.
	SampledPercent float64
	UsedFallback   bool
}

const draftPrompt = `You are a security architect. Based on the file summaries below, produce a Mermaid data-flow diagram of this repository from a security perspective.

Requirements:
- Output Mermaid flowchart syntax only, starting with "flowchart TD"
- Group related components with subgraph blocks
- Use node types: process, datastore, external, boundary
- Declare a classDef for each node type and assign nodes with class statements
- Connect nodes with directed edges (-->), labeling data that flows between them
- Node labels: letters, digits, and spaces only

File summaries:
%s

Diagram:`

const refinePrompt = `You previously produced the Mermaid data-flow diagram below for this repository. Improve it: add missing trust boundaries, correct data flows, and remove nodes unsupported by the summaries. Keep every formatting requirement: flowchart TD, subgraph grouping, classDef node types, directed --> edges, plain labels. Output Mermaid syntax only.

File summaries:
%s

Current diagram:
%s

Improved diagram:`

// Build runs one attempt of the loop: at most one draft call and one
// refinement call. It never fails; degraded paths return the fallback.
func Build(ctx context.Context, gen Generator, summaries map[string]string, model string) Result {
	serialized, pct := fitToBudget(summaries)
	res := Result{SampledPercent: pct}

	draft := extractFenced(gen.Generate(ctx, fmt.Sprintf(draftPrompt, serialized), model))
	if !valid(draft) {
		logrus.Warn("diagram draft failed structural validation, using fallback template")
		res.Diagram = FallbackTemplate
		res.UsedFallback = true
		return res
	}

	refined := extractFenced(gen.Generate(ctx, fmt.Sprintf(refinePrompt, serialized, draft), model))
	if !valid(refined) {
		logrus.Warn("diagram refinement failed structural validation, using fallback template")
		res.Diagram = FallbackTemplate
		res.UsedFallback = true
		return res
	}

	res.Diagram = refined
	return res
}

// fitToBudget serializes the summaries, and when the result exceeds
// the prompt budget, degrades to a random subset sampled without
// replacement, shrinking by one per iteration down to a single
// summary. A lone summary still over budget is cut to fit, so the
// loop always terminates. Returns the serialized text and the
// percentage of summaries represented.
func fitToBudget(summaries map[string]string) (string, float64) {
	paths := make([]string, 0, len(summaries))
	for p := range summaries {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return "", 100
	}

	serialized := serialize(paths, summaries)
	if len(serialized) <= promptBudget {
		return serialized, 100
	}

	shuffled := make([]string, len(paths))
	copy(shuffled, paths)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	n := len(shuffled)
	for n > 1 {
		n--
		subset := append([]string(nil), shuffled[:n]...)
		sort.Strings(subset)
		serialized = serialize(subset, summaries)
		if len(serialized) <= promptBudget {
			break
		}
	}

	pct := 100 * float64(n) / float64(len(paths))
	truncated := false
	if len(serialized) > promptBudget {
		// A single summary larger than the whole budget; cut it down at
		// a rune boundary and fold the loss into the reported share.
		full := len(serialized)
		cut := promptBudget
		for cut > 0 && !utf8.RuneStart(serialized[cut]) {
			cut--
		}
		serialized = serialized[:cut]
		truncated = true
		pct *= float64(cut) / float64(full)
	}

	logrus.WithFields(logrus.Fields{
		"used":      n,
		"total":     len(paths),
		"truncated": truncated,
		"percent":   fmt.Sprintf("%.1f", pct),
	}).Warn("summaries exceed prompt budget, diagram accuracy degraded by sampling")
	return serialized, pct
}

func serialize(paths []string, summaries map[string]string) string {
	var b strings.Builder
	for _, p := range paths {
		fmt.Fprintf(&b, "## %s\n%s\n\n", p, summaries[p])
	}
	return b.String()
}

// extractFenced pulls the diagram body out of a fenced code block when
// the model wrapped its answer in one.
func extractFenced(text string) string {
	trimmed := strings.TrimSpace(text)
	start := strings.Index(trimmed, "```")
	if start < 0 {
		return trimmed
	}
	rest := trimmed[start+3:]
	// Drop an optional language tag on the fence line.
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		rest = rest[nl+1:]
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// valid accepts a draft only if every required structural marker is
// present.
func valid(draft string) bool {
	if draft == "" {
		return false
	}
	for _, m := range requiredMarkers {
		if !strings.Contains(draft, m) {
			return false
		}
	}
	return true
}
