package server

import (
	"regexp"
	"sort"
	"strings"
)

// SentimentResponse is the analysis wire shape: sentiment in [0,1], up to
// five keywords in display order, and a single-word emotion.
type SentimentResponse struct {
	Sentiment float64  `json:"sentiment"`
	Keywords  []string `json:"keywords"`
	Emotion   string   `json:"emotion"`
}

// Weighted sentiment vocabularies. Strong words count double.
var (
	strongPositive   = []string{"love", "amazing", "fantastic", "excellent", "wonderful", "delighted", "ecstatic", "thrilled"}
	moderatePositive = []string{"happy", "joy", "great", "good", "positive", "excited", "pleased", "satisfied", "nice", "fine", "okay", "ok"}
	strongNegative   = []string{"hate", "terrible", "awful", "horrible", "disgusting", "devastated", "miserable"}
	moderateNegative = []string{"sad", "angry", "bad", "disappointed", "frustrated", "upset", "worried", "fear", "anxious", "depressed", "annoyed"}
	negationWords    = []string{"not", "n't", "no", "never", "nothing", "nobody", "nowhere"}
)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "being": true, "have": true, "has": true,
	"had": true, "do": true, "does": true, "did": true, "will": true,
	"would": true, "could": true, "should": true, "may": true, "might": true,
	"must": true, "can": true, "this": true, "that": true, "these": true,
	"those": true, "i": true, "you": true, "he": true, "she": true, "it": true,
	"we": true, "they": true, "me": true, "him": true, "her": true, "us": true,
	"them": true,
}

var wordPattern = regexp.MustCompile(`\b[a-z]{3,}\b`)

// FallbackAnalyze is the heuristic analysis used when the upstream model is
// unavailable: weighted word-list scoring with negation flip, punctuation
// bias for otherwise-neutral text, and frequency-ranked keywords.
func FallbackAnalyze(text string) SentimentResponse {
	lower := strings.ToLower(text)

	score := func(words []string, weight int) int {
		total := 0
		for _, w := range words {
			if strings.Contains(lower, w) {
				total += weight
			}
		}
		return total
	}
	positive := score(strongPositive, 2) + score(moderatePositive, 1)
	negative := score(strongNegative, 2) + score(moderateNegative, 1)

	for _, neg := range negationWords {
		if strings.Contains(lower, neg) {
			positive, negative = negative, positive
			break
		}
	}

	var sentiment float64
	if total := positive + negative; total > 0 {
		sentiment = 0.5 + (float64(positive-negative)/float64(total*2))*0.5
	} else {
		exclaims := strings.Count(text, "!")
		questions := strings.Count(text, "?")
		switch {
		case exclaims > questions:
			sentiment = 0.55
		case questions > exclaims:
			sentiment = 0.45
		default:
			sentiment = 0.5
		}
	}
	if sentiment < 0 {
		sentiment = 0
	} else if sentiment > 1 {
		sentiment = 1
	}

	keywords := topKeywords(lower, 5)

	emotion := "neutral"
	switch {
	case sentiment > 0.7:
		emotion = "positive"
	case sentiment < 0.3:
		emotion = "negative"
	}
	switch {
	case containsAny(lower, "happy", "joy", "excited", "love"):
		emotion = "joyful"
	case containsAny(lower, "sad", "depressed", "down"):
		emotion = "sad"
	case containsAny(lower, "angry", "mad", "furious"):
		emotion = "angry"
	case containsAny(lower, "calm", "peaceful", "relaxed"):
		emotion = "calm"
	}

	return SentimentResponse{Sentiment: sentiment, Keywords: keywords, Emotion: emotion}
}

// topKeywords ranks significant words by frequency, breaking ties by first
// appearance.
func topKeywords(lower string, n int) []string {
	words := wordPattern.FindAllString(lower, -1)
	counts := make(map[string]int)
	var order []string
	for _, w := range words {
		if stopWords[w] {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > n {
		order = order[:n]
	}
	if order == nil {
		order = []string{}
	}
	return order
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
