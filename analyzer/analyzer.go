// Package analyzer scores how well a resume matches a job description. The
// LLM path asks for structured output and coerces whatever comes back; the
// keyword path is a deterministic overlap score used when no generation
// service is configured.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jobtalk/jobtalk/errors"
	"github.com/jobtalk/jobtalk/llm"
	"github.com/jobtalk/jobtalk/logging"
)

// maxInputChars bounds each input text sent to the generation service.
const maxInputChars = 15000

// maxListEntries bounds the strengths and gaps lists.
const maxListEntries = 10

// fallbackInsights is returned by the keyword path instead of narrative.
const fallbackInsights = "Generated by keyword overlap; configure a generation service for richer analysis."

// Result is a resume-to-job-description match assessment.
type Result struct {
	Match     int      `json:"match"`
	Strengths []string `json:"strengths"`
	Gaps      []string `json:"gaps"`
	Insights  string   `json:"insights"`
}

// Analyzer scores resumes against job descriptions.
type Analyzer struct {
	provider llm.Provider
	log      *logging.Logger
}

// New creates an analyzer. A nil provider selects the keyword fallback.
func New(provider llm.Provider, log *logging.Logger) *Analyzer {
	return &Analyzer{
		provider: provider,
		log:      log.WithComponent("analyzer"),
	}
}

const analyzePrompt = `You are an experienced technical recruiter. Compare the resume and the job description below.

Respond with strict JSON only, no prose, in exactly this shape:
{"match": <integer 0-100>, "strengths": [<up to 10 short strings>], "gaps": [<up to 10 short strings>], "insights": "<short narrative>"}

Resume:
%s

Job description:
%s`

// Analyze scores the resume against the job description. The LLM path parses
// and coerces the model's JSON; any structural parse failure, even after
// recovery, returns a MalformedResponse error. The keyword path never fails.
func (a *Analyzer) Analyze(ctx context.Context, resumeText, jdText string) (*Result, error) {
	if strings.TrimSpace(resumeText) == "" {
		return nil, errors.InvalidInput("resume text is required")
	}
	if strings.TrimSpace(jdText) == "" {
		return nil, errors.InvalidInput("job description text is required")
	}

	start := time.Now()

	if a.provider == nil {
		result := keywordFallback(resumeText, jdText)
		a.log.AnalyzeDone(result.Match, true, time.Since(start))
		return result, nil
	}

	prompt := fmt.Sprintf(analyzePrompt, truncate(resumeText, maxInputChars), truncate(jdText, maxInputChars))
	resp, err := a.provider.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "match analysis generation failed")
	}

	result, err := parseResult(resp.Content)
	if err != nil {
		return nil, err
	}
	a.log.AnalyzeDone(result.Match, false, time.Since(start))
	return result, nil
}

// truncate bounds text to at most n bytes, backing off to a rune boundary so
// the cut never leaves a partial UTF-8 sequence.
func truncate(text string, n int) string {
	if len(text) <= n {
		return text
	}
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n]
}

// rawResult accepts loosely-typed model output before coercion.
type rawResult struct {
	Match     json.RawMessage `json:"match"`
	Strengths []any           `json:"strengths"`
	Gaps      []any           `json:"gaps"`
	Insights  any             `json:"insights"`
}

// parseResult parses model output into a Result. It tries the whole text as
// JSON first, then the first balanced brace substring. Both failing is a
// MalformedResponse.
func parseResult(content string) (*Result, error) {
	var raw rawResult
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		extracted := extractBalancedJSON(content)
		if extracted == "" {
			return nil, errors.MalformedResponse("analysis output is not valid JSON", errors.WithCause(err))
		}
		if err := json.Unmarshal([]byte(extracted), &raw); err != nil {
			return nil, errors.MalformedResponse("analysis output is not valid JSON even after extraction", errors.WithCause(err))
		}
	}

	return &Result{
		Match:     clampScore(coerceScore(raw.Match)),
		Strengths: coerceList(raw.Strengths),
		Gaps:      coerceList(raw.Gaps),
		Insights:  coerceString(raw.Insights),
	}, nil
}

// extractBalancedJSON returns the first balanced {...} substring, or "".
// Quotes and escapes are respected so braces inside strings don't count.
func extractBalancedJSON(content string) string {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return content[start : i+1]
				}
			}
		}
	}
	return ""
}

// coerceScore accepts a number, a numeric string, or garbage (scored 0).
func coerceScore(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	}
	return 0
}

// clampScore rounds and clamps a score into [0,100].
func clampScore(score float64) int {
	if math.IsNaN(score) {
		return 0
	}
	n := int(math.Round(score))
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// coerceList keeps string entries, drops the rest, and truncates to the cap.
func coerceList(items []any) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, s)
		if len(out) == maxListEntries {
			break
		}
	}
	return out
}

func coerceString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// wordPattern tokenizes text for the keyword fallback.
var wordPattern = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9+_.-]+`)

// keywordFallback scores by lowercase word-set overlap:
// round(100 * |resume ∩ jd| / |jd|). An empty job description scores 0.
func keywordFallback(resumeText, jdText string) *Result {
	resumeWords := wordSet(resumeText)
	jdWords := wordSet(jdText)
	if len(jdWords) == 0 {
		return &Result{Strengths: []string{}, Gaps: []string{}, Insights: fallbackInsights}
	}

	overlap := 0
	for w := range jdWords {
		if resumeWords[w] {
			overlap++
		}
	}

	score := clampScore(100 * float64(overlap) / float64(len(jdWords)))
	return &Result{
		Match:     score,
		Strengths: []string{},
		Gaps:      []string{},
		Insights:  fallbackInsights,
	}
}

// wordSet extracts the deduplicated lowercase word tokens of a text.
func wordSet(text string) map[string]bool {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
