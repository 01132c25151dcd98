// Package classifier implements the rule-based, total, stateless mapping
// from free text to a memory type, confidence, and human-readable reasoning.
// It never fails: classification is defined over every non-empty string.
package classifier

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/memorai/memoraid/internal/model"
)

// Result is the classifier's total output for a single piece of content.
type Result struct {
	Type       model.MemoryType
	Confidence float64
	Reasoning  string
}

type weightedPattern struct {
	re     *regexp.Regexp
	weight float64
}

type ruleGroup struct {
	Type        model.MemoryType
	GroupWeight float64
	Keywords    map[string]float64
	Patterns    []weightedPattern
}

// Rule groups are ordered so that, absent any score, iteration is
// deterministic; ties are broken in favor of thread regardless of order.
var groups = []ruleGroup{
	{
		Type:        model.TypePersonality,
		GroupWeight: 1.0,
		Keywords: map[string]float64{
			"i am": 1.5, "i'm": 1.5, "my personality": 2.0, "trait": 1.2,
			"always": 0.8, "tends to": 1.2, "character": 1.0, "personality": 1.8,
		},
	},
	{
		Type:        model.TypeProcedure,
		GroupWeight: 1.0,
		Keywords: map[string]float64{
			"step": 1.8, "steps": 1.8, "first": 0.8, "then": 0.6,
			"deploy": 1.6, "install": 1.4, "configure": 1.4, "build": 1.0,
			"process": 1.4, "how to": 1.8, "procedure": 1.6,
		},
		Patterns: []weightedPattern{
			{re: regexp.MustCompile("(?m)^\\s*\\d+[.)]"), weight: 2.0},
			{re: regexp.MustCompile("```"), weight: 2.0},
			{re: regexp.MustCompile(`(?m)^\s*[-*]\s`), weight: 1.4},
		},
	},
	{
		Type:        model.TypePreference,
		GroupWeight: 1.0,
		Keywords: map[string]float64{
			"prefer": 2.0, "favorite": 1.6, "rather": 1.2, "instead of": 1.6,
			"better": 1.0, "best": 0.8, "love this more": 1.4,
		},
	},
	{
		Type:        model.TypeFact,
		GroupWeight: 1.0,
		Keywords: map[string]float64{
			"fact": 1.6, "backup": 2.0, "key": 1.0, "password": 2.0,
			"secret": 2.0, "private": 1.6, "located": 1.0,
		},
		Patterns: []weightedPattern{
			{re: regexp.MustCompile(`https?://\S+`), weight: 1.8},
			{re: regexp.MustCompile(`(?:/[\w.-]+){2,}`), weight: 1.4},
		},
	},
	{
		Type:        model.TypeThread,
		GroupWeight: 1.0,
		Keywords: map[string]float64{
			"said": 2.0, "asked": 1.8, "mentioned": 1.6, "chat": 1.2,
			"conversation": 1.4,
		},
		Patterns: []weightedPattern{
			{re: regexp.MustCompile(`\?`), weight: 1.4},
		},
	},
	{
		Type:        model.TypeTask,
		GroupWeight: 1.0,
		Keywords: map[string]float64{
			"todo": 2.0, "task": 1.6, "remind": 1.4, "need to": 1.2,
			"must": 1.0, "deadline": 1.6,
		},
	},
	{
		Type:        model.TypeEmotion,
		GroupWeight: 1.0,
		Keywords: map[string]float64{
			"feel": 1.6, "love": 1.2, "hate": 1.2, "excited": 1.8,
			"sad": 1.6, "angry": 1.6, "happy": 1.4,
		},
	},
}

const (
	lengthBonus         = 0.3
	structureBonus      = 0.4
	disambiguationBonus = 3.0
	longContentChars    = 200
	shortContentChars   = 50
	midContentUpper     = 150
)

// Classify is pure and total: every non-empty string maps to a Result.
// Callers are responsible for rejecting empty/whitespace content before
// calling in (InvalidContent is an engine-level concern, not a classifier
// error, per spec — classification itself cannot fail).
func Classify(content string) Result {
	lower := strings.ToLower(content)
	tokens := tokenize(lower)

	scores := make(map[model.MemoryType]float64, len(groups))
	var reasons []string

	for _, g := range groups {
		keywordSum := 0.0
		var matchedKeywords []string
		for kw, weight := range g.Keywords {
			if n := strings.Count(lower, kw); n > 0 {
				keywordSum += weight * float64(n)
				matchedKeywords = append(matchedKeywords, kw)
			}
		}
		patternSum := 0.0
		var matchedPatterns int
		for _, p := range g.Patterns {
			if n := len(p.re.FindAllString(content, -1)); n > 0 {
				patternSum += p.weight * float64(n)
				matchedPatterns += n
			}
		}
		score := (math.Pow(keywordSum, 1.5)*0.5 + patternSum*0.7) * g.GroupWeight
		if score > 0 {
			scores[g.Type] = score
			sort.Strings(matchedKeywords)
			if len(matchedKeywords) > 0 {
				reasons = append(reasons, fmt.Sprintf("%s: keywords %v (score %.2f)", g.Type, matchedKeywords, score))
			} else {
				reasons = append(reasons, fmt.Sprintf("%s: %d pattern match(es) (score %.2f)", g.Type, matchedPatterns, score))
			}
		}
	}

	length := len([]rune(content))
	switch {
	case length > longContentChars:
		scores[model.TypeProcedure] += lengthBonus
		scores[model.TypeFact] += lengthBonus
		reasons = append(reasons, "length >200 chars boosts procedure/fact")
	case length < shortContentChars:
		scores[model.TypeThread] += lengthBonus
		reasons = append(reasons, "length <50 chars boosts thread")
	case length <= midContentUpper:
		scores[model.TypePreference] += lengthBonus
		reasons = append(reasons, "length 50-150 chars boosts preference")
	}

	hasNumberedOrBullet := regexp.MustCompile(`(?m)^\s*(\d+[.)]|[-*]\s)`).MatchString(content) || strings.Contains(content, "```")
	hasQuestion := strings.Contains(content, "?")
	hasURLOrPath := regexp.MustCompile(`https?://\S+`).MatchString(content) || regexp.MustCompile(`(?:/[\w.-]+){2,}`).MatchString(content)

	if hasNumberedOrBullet {
		scores[model.TypeProcedure] += structureBonus
		scores[model.TypeFact] += structureBonus
		reasons = append(reasons, "structure: numbered/bulleted/code content boosts procedure/fact")
	}
	if hasQuestion {
		scores[model.TypeThread] += structureBonus
		reasons = append(reasons, "structure: question mark boosts thread")
	}
	if hasURLOrPath {
		scores[model.TypeFact] += structureBonus
		scores[model.TypeProcedure] += structureBonus
		reasons = append(reasons, "structure: url/path boosts fact/procedure")
	}

	applyDisambiguation(lower, scores, &reasons)

	bestType, best, second := topTwo(scores)

	tokenCount := len(tokens)
	estimatedMax := 2.0 + 0.1*float64(tokenCount) + 0.01*float64(length)
	if estimatedMax <= 0 {
		estimatedMax = 1
	}
	confidence := 0.4
	confidence += 0.4 * clamp01(best/estimatedMax)
	confidence += 0.2 * clamp01((best-second)/estimatedMax)
	confidence = clamp01(confidence)

	if len(reasons) == 0 {
		reasons = append(reasons, "no rules triggered; defaulting to thread")
	}

	return Result{
		Type:       bestType,
		Confidence: confidence,
		Reasoning:  strings.Join(reasons, "; "),
	}
}

// ClassifyBatch classifies every text independently: classify_batch is
// functionally map(classify, list).
func ClassifyBatch(texts []string) []Result {
	results := make([]Result, len(texts))
	for i, t := range texts {
		results[i] = Classify(t)
	}
	return results
}

func applyDisambiguation(lower string, scores map[model.MemoryType]float64, reasons *[]string) {
	if strings.Contains(lower, "best approach") || strings.Contains(lower, "better approach") {
		scores[model.TypePreference] += disambiguationBonus
		*reasons = append(*reasons, "disambiguation: best/better approach -> preference")
	} else if strings.Contains(lower, "approach") {
		for _, cue := range []string{"step", "process", "how to", "method"} {
			if strings.Contains(lower, cue) {
				scores[model.TypeProcedure] += disambiguationBonus
				*reasons = append(*reasons, "disambiguation: approach near procedural cue -> procedure")
				break
			}
		}
	}

	if hasWord(lower, "user") {
		personalityCue := false
		for _, cue := range []string{"always", "tends to", "trait", "character", "personality"} {
			if strings.Contains(lower, cue) {
				personalityCue = true
				break
			}
		}
		if personalityCue {
			scores[model.TypePersonality] += disambiguationBonus
			*reasons = append(*reasons, "disambiguation: user + personality cue -> personality")
		} else {
			scores[model.TypeThread] += disambiguationBonus
			*reasons = append(*reasons, "disambiguation: user without personality cue -> thread")
		}
	}

	if hasWord(lower, "should") {
		preferCue := false
		for _, cue := range []string{"use", "choose", "instead of"} {
			if strings.Contains(lower, cue) {
				preferCue = true
				break
			}
		}
		if preferCue {
			scores[model.TypePreference] += disambiguationBonus
			*reasons = append(*reasons, "disambiguation: should + use/choose/instead of -> preference")
		} else {
			scores[model.TypeTask] += disambiguationBonus
			*reasons = append(*reasons, "disambiguation: should without preference cue -> task")
		}
	}

	if (strings.Contains(lower, "love") || strings.Contains(lower, "hate")) &&
		(strings.Contains(lower, "this") || strings.Contains(lower, "that")) {
		scores[model.TypeEmotion] += disambiguationBonus
		*reasons = append(*reasons, "disambiguation: love/hate this/that -> emotion")
	}
}

func hasWord(lower, word string) bool {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`)
	return re.MatchString(lower)
}

// topTwo returns the highest-scoring type (ties broken in favor of thread,
// the conversational default) and the best/second-best scores.
func topTwo(scores map[model.MemoryType]float64) (model.MemoryType, float64, float64) {
	best := model.TypeThread
	bestScore := scores[model.TypeThread]
	second := 0.0

	// Deterministic iteration over the fixed type list, not map order.
	for _, t := range model.Types {
		s := scores[t]
		if t == model.TypeThread {
			continue
		}
		if s > bestScore {
			second = math.Max(second, bestScore)
			bestScore = s
			best = t
		} else if s > second {
			second = s
		}
	}
	if best != model.TypeThread {
		if scores[model.TypeThread] > second {
			second = scores[model.TypeThread]
		}
	}
	return best, bestScore, second
}

func tokenize(lower string) []string {
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
