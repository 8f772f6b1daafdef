// Package filters implements the message filter chain that runs before
// any evaluator call.
//
// Checks run in a fixed order and stop at the first failure:
//   - presence of text and channel
//   - trailing markdown link stripping (never fails)
//   - minimum length in runes
//   - stop words, matched case-sensitively as regular expressions
//   - engagement rate for sufficiently viewed messages
package filters

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/lueurxax/channel-curator/internal/core/domain"
)

const (
	ReasonNoText     = "filter_no_text"
	ReasonNoChannel  = "filter_no_channel"
	ReasonMinLength  = "filter_min_length"
	ReasonStopWord   = "filter_stop_word"
	ReasonEngagement = "filter_engagement"
)

var trailingLinkRe = regexp.MustCompile(`(?m)\s*\[.*?]\(https?://[^)]+\)$`)

// Config holds filter thresholds.
type Config struct {
	MinLen    int
	MinViews  int64
	MinER     float64
	StopWords []string
}

// Input is one message as the chain sees it.
type Input struct {
	Channel   string
	Text      string
	Views     *int64
	Reactions *int64
	Forwards  *int64
	// Last marks the final message of a fetched batch. Its engagement is
	// still accumulating, so the rate check does not apply.
	Last bool
}

// Result is the chain outcome. Reason is empty when the message passed.
type Result struct {
	// Text is the stripped text once Stripped is set. It may be empty.
	Text     string
	Stripped bool
	Reason   string
	StopWord string
}

// Passed reports whether no filter rejected the message.
func (r Result) Passed() bool {
	return r.Reason == ""
}

type stopWord struct {
	word string
	re   *regexp.Regexp
}

// Filterer applies the filter chain.
type Filterer struct {
	minLen    int
	minViews  int64
	minER     float64
	stopWords []stopWord
}

// New creates a Filterer. Stop words that are not valid patterns are
// matched literally.
func New(cfg Config) *Filterer {
	words := make([]stopWord, 0, len(cfg.StopWords))

	for _, w := range cfg.StopWords {
		if w == "" {
			continue
		}

		re, err := regexp.Compile(w)
		if err != nil {
			re = regexp.MustCompile(regexp.QuoteMeta(w))
		}

		words = append(words, stopWord{word: w, re: re})
	}

	return &Filterer{
		minLen:    cfg.MinLen,
		minViews:  cfg.MinViews,
		minER:     cfg.MinER,
		stopWords: words,
	}
}

// Apply runs the chain over in.
func (f *Filterer) Apply(in Input) Result {
	if in.Text == "" {
		return Result{Reason: ReasonNoText}
	}

	if in.Channel == "" {
		return Result{Text: in.Text, Reason: ReasonNoChannel}
	}

	text := StripTrailingLinks(in.Text)

	if utf8.RuneCountInString(text) < f.minLen {
		return Result{Text: text, Stripped: true, Reason: ReasonMinLength}
	}

	if word := f.matchStopWord(text); word != "" {
		return Result{Text: text, Stripped: true, Reason: ReasonStopWord, StopWord: word}
	}

	if f.lowEngagement(in) {
		return Result{Text: text, Stripped: true, Reason: ReasonEngagement}
	}

	return Result{Text: text, Stripped: true}
}

// StripTrailingLinks removes markdown links that end a line, along with
// the whitespace before them.
func StripTrailingLinks(text string) string {
	if !strings.Contains(text, "](http") {
		return text
	}

	return trailingLinkRe.ReplaceAllString(text, "")
}

// EngagementRate is (reactions + forwards) / views, or 0 without views.
func EngagementRate(views, reactions, forwards *int64) float64 {
	v := domain.Int64Value(views)
	if v == 0 {
		return 0
	}

	return float64(domain.Int64Value(reactions)+domain.Int64Value(forwards)) / float64(v)
}

func (f *Filterer) matchStopWord(text string) string {
	for _, sw := range f.stopWords {
		if sw.re.MatchString(text) {
			return sw.word
		}
	}

	return ""
}

func (f *Filterer) lowEngagement(in Input) bool {
	if in.Last {
		return false
	}

	rate := EngagementRate(in.Views, in.Reactions, in.Forwards)

	return rate < f.minER && domain.Int64Value(in.Views) > f.minViews
}
