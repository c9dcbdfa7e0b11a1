package main

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/jonreiter/govader"
)

// Sentiment labels.
const (
	VeryPositive = "Very Positive"
	Positive     = "Positive"
	Neutral      = "Neutral"
	Negative     = "Negative"
	VeryNegative = "Very Negative"
)

// SentimentResult scores a single comment.
type SentimentResult struct {
	Sentiment    string  `json:"sentiment"`
	Polarity     float64 `json:"polarity"`
	Subjectivity float64 `json:"subjectivity"`
	Confidence   float64 `json:"confidence"`
}

var lexicon = map[string]float64{
	// very positive
	"awesome": 5, "amazing": 5, "excellent": 5, "perfect": 6, "outstanding": 6,
	"fantastic": 5, "brilliant": 5, "superb": 5, "incredible": 5, "wonderful": 5,
	"phenomenal": 6, "masterpiece": 6, "genius": 6, "legend": 5, "goat": 5,
	"extraordinary": 6, "exceptional": 6, "magnificent": 6, "spectacular": 6,
	"fabulous": 5, "marvelous": 5, "terrific": 5, "mindblowing": 6,

	// positive
	"love": 4, "loved": 4, "loving": 4, "great": 4, "good": 3, "nice": 3,
	"cool": 3, "thanks": 3, "thank": 3, "helpful": 4, "useful": 4,
	"informative": 4, "interesting": 3, "beautiful": 4, "best": 5,
	"better": 3, "appreciate": 4, "appreciated": 4, "liked": 3, "like": 2,
	"enjoyed": 4, "enjoying": 4, "enjoy": 3, "recommend": 4, "recommended": 4,
	"impressive": 4, "inspiring": 4, "inspired": 4, "motivated": 3,
	"educational": 3, "quality": 3, "valuable": 4, "worth": 3, "worthy": 3,
	"glad": 3, "happy": 4, "pleased": 3, "delighted": 4, "satisfied": 3,
	"funny": 3, "fun": 3, "hilarious": 4, "wow": 4, "yes": 1, "win": 4,

	// slightly positive
	"ok": 1, "okay": 1, "fine": 2, "decent": 2, "fair": 1, "alright": 2,

	// negative
	"bad": -3, "worse": -4, "hate": -4, "hated": -4, "hating": -4,
	"worst": -5, "terrible": -4, "awful": -4, "horrible": -4,
	"disgusting": -4, "useless": -4, "waste": -3, "wasted": -3,
	"boring": -3, "bored": -3, "annoying": -3, "annoyed": -3,
	"stupid": -4, "dumb": -3, "poor": -2, "disappointed": -3,
	"disappointing": -3, "dislike": -3, "disliked": -3, "sucks": -4,
	"pathetic": -4, "trash": -4, "garbage": -4, "crap": -3,
	"lame": -3, "weak": -2, "suck": -4, "fail": -3, "failed": -3,
	"wrong": -2, "problem": -2, "issue": -2, "issues": -2,
	"sad": -2, "angry": -3, "cringe": -3, "ugly": -3, "broken": -2,

	// very negative
	"disaster": -5, "nightmare": -5, "catastrophe": -5, "abysmal": -6,
	"appalling": -5, "atrocious": -6, "dreadful": -5, "horrendous": -5,

	// youtube specific
	"subscribe": 2, "subscribed": 2, "subscriber": 1, "unsubscribe": -3,
	"unsubscribed": -3, "clickbait": -4, "misleading": -3, "mislead": -3,
	"fake": -3, "spam": -4, "scam": -4, "copied": -3, "copy": -2,
	"stolen": -3, "steal": -3, "original": 3, "unique": 3,
	"underrated": 3, "overrated": -2, "overhyped": -2,

	// hindi / indian (transliterated)
	"zabardast": 4, "badhiya": 4, "bahut": 2, "accha": 3, "achha": 3,
	"bekar": -4, "bakwas": -3, "faltu": -3, "kamaal": 4, "mast": 3,
	"badiya": 4, "khatarnak": 4, "dhinchak": 3, "jhakkas": 4,
	"ghatiya": -4, "bekaar": -4, "wahiyat": -3, "bakvas": -3,
}

var negations = map[string]bool{
	"not": true, "no": true, "never": true, "neither": true, "nobody": true,
	"nothing": true, "nowhere": true, "cannot": true, "can't": true, "won't": true,
	"don't": true, "doesn't": true, "didn't": true, "isn't": true, "aren't": true,
	"wasn't": true, "weren't": true, "hasn't": true, "haven't": true, "hadn't": true,
	"shouldn't": true, "wouldn't": true, "couldn't": true, "hardly": true,
	"barely": true, "scarcely": true, "rarely": true, "seldom": true,
	"without": true, "lack": true, "lacking": true, "lacks": true,
}

var intensifiers = map[string]float64{
	"very": 1.5, "really": 1.5, "extremely": 2.0, "super": 1.8,
	"absolutely": 2.0, "totally": 1.5, "completely": 1.8, "utterly": 2.0,
	"highly": 1.5, "so": 1.3, "too": 1.3, "quite": 1.2, "pretty": 1.2,
	"incredibly": 1.8, "amazingly": 1.8, "exceptionally": 1.8,
	"extraordinarily": 2.0, "remarkably": 1.6, "particularly": 1.4,
	"especially": 1.4, "insanely": 2.0, "ridiculously": 1.8,
}

var diminishers = map[string]float64{
	"slightly": 0.5, "somewhat": 0.5, "barely": 0.3, "hardly": 0.3,
	"little": 0.5, "bit": 0.5, "kinda": 0.6, "kind of": 0.6,
	"sort of": 0.6, "almost": 0.7, "nearly": 0.7, "fairly": 0.6,
	"rather": 0.7, "mildly": 0.5, "moderately": 0.6,
}

var sarcasmIndicators = []string{
	"yeah right", "sure", "obviously", "clearly", "totally",
	"great job", "nice try", "well done", "brilliant move",
	"genius idea", "love that", "perfect timing",
}

var positiveContexts = []string{
	"thank you", "thanks for", "appreciate", "well done", "keep it up",
	"keep up", "looking forward", "cant wait", "can't wait", "excited",
	"congrats", "congratulations", "proud", "respect", "kudos",
	"love this", "love it", "this is great", "this is amazing",
}

var negativeContexts = []string{
	"waste of time", "waste time", "not worth", "dont recommend",
	"don't recommend", "disappointed", "regret", "mistake", "avoid",
	"never again", "stay away", "skip this", "save your", "scam alert",
}

var emojiScores = []struct {
	emoji string
	score float64
}{
	{"❤", 4}, {"😊", 3}, {"😂", 3}, {"😁", 3}, {"😃", 3}, {"😄", 3},
	{"👍", 3}, {"🔥", 4}, {"✨", 3}, {"💯", 4}, {"👏", 4}, {"🙌", 3},
	{"😍", 4}, {"🥰", 4}, {"😘", 4}, {"🙏", 3}, {"💪", 3}, {"🎉", 3}, {"🎊", 3},
	{"😢", -2}, {"😭", -2}, {"😡", -4}, {"😠", -4}, {"👎", -4},
	{"💩", -4}, {"🤮", -4}, {"😤", -3}, {"🤬", -5}, {"💔", -3}, {"😞", -2},
	{"😔", -2}, {"😟", -2}, {"😩", -3}, {"😫", -3}, {"🤢", -3},
}

var (
	urlPattern      = regexp.MustCompile(`https?://\S+`)
	nonWordPattern  = regexp.MustCompile(`[^\w\s!?.'-]`)
	spacePattern    = regexp.MustCompile(`\s+`)
	questionPattern = regexp.MustCompile(`(?i)^(who|what|when|where|why|how|which|whose|whom|can|could|would|should|is|are|do|does|did)`)
)

func preprocessText(text string) string {
	s := strings.ToLower(text)
	s = urlPattern.ReplaceAllString(s, "")
	s = nonWordPattern.ReplaceAllString(s, " ")
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// generalLexicon scores words the YouTube-specific lexicon does not know.
var generalLexicon = govader.NewSentimentIntensityAnalyzer()

// vaderAlpha is the normalization constant VADER applies to its compound score.
const vaderAlpha = 15

// wordScore looks the word up in the custom lexicon first and falls back to
// the general-purpose VADER lexicon, rounded to the custom lexicon's integer scale.
func wordScore(word string) float64 {
	word = strings.Trim(word, "!?.'-")
	if word == "" {
		return 0
	}
	if s, ok := lexicon[word]; ok {
		return s
	}
	return generalScore(word)
}

// generalScore recovers a single word's VADER valence from its compound score.
func generalScore(word string) float64 {
	c := generalLexicon.PolarityScores(word).Compound
	if c == 0 || math.Abs(c) >= 1 {
		return 0
	}
	return math.Round(c * math.Sqrt(vaderAlpha/(1-c*c)))
}

// applyNegations flips the first scored word within four words of a negation.
func applyNegations(words []string, scores []float64) {
	for i, w := range words {
		if !negations[strings.Trim(w, "!?.")] {
			continue
		}
		for j := i + 1; j < min(i+5, len(words)); j++ {
			if scores[j] != 0 {
				scores[j] = -scores[j] * 0.9
				break
			}
		}
	}
}

// applyModifiers scales the next scored word after an intensifier or diminisher.
func applyModifiers(words []string, scores []float64) {
	scaleNext := func(from, to int, factor float64) {
		for j := from; j < min(to, len(words)); j++ {
			if scores[j] != 0 {
				scores[j] *= factor
				return
			}
		}
	}

	for i := 0; i < len(words)-1; i++ {
		bigram := words[i] + " " + words[i+1]
		if f, ok := intensifiers[bigram]; ok {
			scaleNext(i+2, i+4, f)
		} else if f, ok := diminishers[bigram]; ok {
			scaleNext(i+2, i+4, f)
		}

		if f, ok := intensifiers[words[i]]; ok {
			scaleNext(i+1, i+4, f)
		}
		if f, ok := diminishers[words[i]]; ok {
			scaleNext(i+1, i+4, f)
		}
	}
}

func emojiSentiment(text string) (score float64, count int) {
	for _, e := range emojiScores {
		n := strings.Count(text, e.emoji)
		if n > 0 {
			score += e.score * float64(min(n, 3))
			count += n
		}
	}
	return score, count
}

func contextScore(text string) float64 {
	lower := strings.ToLower(text)
	var score float64
	for _, p := range positiveContexts {
		if strings.Contains(lower, p) {
			score += 2
		}
	}
	for _, p := range negativeContexts {
		if strings.Contains(lower, p) {
			score -= 3
		}
	}
	return score
}

func detectSarcasm(text string, polarity float64) bool {
	if polarity <= 0 {
		return false
	}
	lower := strings.ToLower(text)
	words := strings.Split(lower, " ")
	for _, indicator := range sarcasmIndicators {
		if !strings.Contains(lower, indicator) {
			continue
		}
		idx := -1
		for i, w := range words {
			if w != "" && strings.Contains(indicator, w) {
				idx = i
				break
			}
		}
		if idx < 0 {
			continue
		}
		after := strings.Join(words[idx:min(idx+5, len(words))], " ")
		for _, w := range []string{"but", "however", "though", "unfortunately"} {
			if strings.Contains(after, w) {
				return true
			}
		}
	}
	return false
}

func isQuestion(text string) bool {
	return strings.Contains(text, "?") || questionPattern.MatchString(text)
}

func capsRatio(text string) float64 {
	var letters, caps int
	for _, r := range text {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			caps++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(caps) / float64(letters)
}

// analyzeSentiment scores text with the lexicon, negation and modifier
// handling, emoji and phrase context, and punctuation/caps emphasis.
func analyzeSentiment(text string) SentimentResult {
	if strings.TrimSpace(text) == "" {
		return SentimentResult{Sentiment: Neutral}
	}

	words := strings.Fields(preprocessText(text))
	wordCount := max(len(words), 1)

	scores := make([]float64, len(words))
	for i, w := range words {
		scores[i] = wordScore(w)
	}
	applyNegations(words, scores)
	applyModifiers(words, scores)

	var score float64
	scored := 0
	for _, s := range scores {
		score += s
		if s != 0 {
			scored++
		}
	}

	emojiScore, emojiCount := emojiSentiment(text)
	score += emojiScore
	score += contextScore(text)

	exclamations := strings.Count(text, "!")
	if capsRatio(text) > 0.6 && wordCount > 3 {
		score *= 1.2
	}
	if exclamations > 0 {
		score *= 1 + math.Min(float64(exclamations)*0.08, 0.4)
	}
	if isQuestion(text) && math.Abs(score) < 3 {
		score *= 0.6
	}

	comparative := score / math.Max(math.Sqrt(float64(wordCount)), 1)
	polarity := math.Tanh(comparative / 2.5)
	subjectivity := math.Min(1, float64(scored+emojiCount)/float64(wordCount))

	confidence := math.Min(1, math.Abs(polarity)*subjectivity)
	confidence += math.Min(float64(exclamations)*0.05, 0.2)
	confidence += math.Min(float64(emojiCount)*0.03, 0.15)
	confidence = math.Min(1, confidence)

	label := polarityLabel(polarity)

	if wordCount <= 3 {
		switch {
		case math.Abs(polarity) > 0.4 && polarity > 0:
			label = Positive
			if polarity > 0.7 {
				label = VeryPositive
			}
		case math.Abs(polarity) > 0.4:
			label = Negative
			if polarity < -0.7 {
				label = VeryNegative
			}
		case math.Abs(polarity) < 0.1:
			label = Neutral
		}
	}

	if detectSarcasm(text, polarity) {
		polarity = -math.Abs(polarity) * 0.7
		label = Neutral
		if polarity < -0.4 {
			label = Negative
		}
	}

	if wordCount <= 2 && emojiCount > 0 {
		switch {
		case emojiScore > 3:
			label, polarity = VeryPositive, 0.8
		case emojiScore > 0:
			label, polarity = Positive, 0.5
		case emojiScore < -3:
			label, polarity = VeryNegative, -0.8
		case emojiScore < 0:
			label, polarity = Negative, -0.5
		}
	}

	return SentimentResult{
		Sentiment:    label,
		Polarity:     round4(polarity),
		Subjectivity: round4(subjectivity),
		Confidence:   round4(confidence),
	}
}

func polarityLabel(p float64) string {
	switch {
	case p >= 0.5:
		return VeryPositive
	case p >= 0.2:
		return Positive
	case p <= -0.5:
		return VeryNegative
	case p <= -0.2:
		return Negative
	case math.Abs(p) < 0.05:
		return Neutral
	case p > 0:
		return Positive
	}
	return Negative
}

func round4(f float64) float64 {
	return math.Round(f*1e4) / 1e4
}
