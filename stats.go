package main

import (
	"fmt"
	"math"
	"strings"
)

// AnalyzedComment is a Comment with its sentiment scores attached.
type AnalyzedComment struct {
	Row          int     `json:"row"`
	ID           string  `json:"id"`
	Author       string  `json:"author"`
	Text         string  `json:"text"`
	Sentiment    string  `json:"sentiment"`
	Polarity     float64 `json:"polarity"`
	Subjectivity float64 `json:"subjectivity"`
	Confidence   float64 `json:"confidence"`
	Likes        int64   `json:"likes"`
	ReplyCount   int     `json:"replyCount"`
	PostedTime   string  `json:"postedTime"`
	IsReply      bool    `json:"isReply"`
}

// Statistics summarizes the sentiment of a set of analyzed comments.
// Percentages are 0-100 with two decimals.
type Statistics struct {
	TotalComments       int     `json:"totalComments"`
	PositiveCount       int     `json:"positiveCount"`
	NegativeCount       int     `json:"negativeCount"`
	NeutralCount        int     `json:"neutralCount"`
	PositivePercent     float64 `json:"positivePercent"`
	NegativePercent     float64 `json:"negativePercent"`
	NeutralPercent      float64 `json:"neutralPercent"`
	VeryPositivePercent float64 `json:"veryPositivePercent"`
	VeryNegativePercent float64 `json:"veryNegativePercent"`
	AvgPolarity         float64 `json:"avgPolarity"`
	AvgSubjectivity     float64 `json:"avgSubjectivity"`
	AvgConfidence       float64 `json:"avgConfidence"`
	TotalLikes          int64   `json:"totalLikes"`
	AvgLikes            float64 `json:"avgLikes"`
	MaxPolarity         float64 `json:"maxPolarity"`
	MinPolarity         float64 `json:"minPolarity"`
}

// Insight is one human-readable finding with a suggested action.
type Insight struct {
	Category string `json:"category"`
	Insight  string `json:"insight"`
	Action   string `json:"action"`
}

func processComments(comments []Comment) []AnalyzedComment {
	out := make([]AnalyzedComment, len(comments))
	for i, c := range comments {
		s := analyzeSentiment(c.Text)
		out[i] = AnalyzedComment{
			Row:          i + 1,
			ID:           c.ID,
			Author:       c.Author,
			Text:         c.Text,
			Sentiment:    s.Sentiment,
			Polarity:     s.Polarity,
			Subjectivity: s.Subjectivity,
			Confidence:   s.Confidence,
			Likes:        c.Likes,
			ReplyCount:   c.ReplyCount,
			PostedTime:   c.PublishedAt,
		}
	}
	return out
}

func calculateStatistics(comments []AnalyzedComment) Statistics {
	st := Statistics{TotalComments: len(comments)}
	if len(comments) == 0 {
		return st
	}

	counts := map[string]int{}
	var polarity, subjectivity, confidence float64
	st.MaxPolarity = math.Inf(-1)
	st.MinPolarity = math.Inf(1)

	for _, c := range comments {
		counts[c.Sentiment]++
		polarity += c.Polarity
		subjectivity += c.Subjectivity
		confidence += c.Confidence
		st.TotalLikes += c.Likes
		st.MaxPolarity = math.Max(st.MaxPolarity, c.Polarity)
		st.MinPolarity = math.Min(st.MinPolarity, c.Polarity)
	}

	n := float64(len(comments))
	pct := func(k int) float64 { return round2(float64(k) / n * 100) }

	st.PositiveCount = counts[VeryPositive] + counts[Positive]
	st.NegativeCount = counts[VeryNegative] + counts[Negative]
	st.NeutralCount = counts[Neutral]
	st.PositivePercent = pct(st.PositiveCount)
	st.NegativePercent = pct(st.NegativeCount)
	st.NeutralPercent = pct(st.NeutralCount)
	st.VeryPositivePercent = pct(counts[VeryPositive])
	st.VeryNegativePercent = pct(counts[VeryNegative])
	st.AvgPolarity = round4(polarity / n)
	st.AvgSubjectivity = round4(subjectivity / n)
	st.AvgConfidence = round4(confidence / n)
	st.AvgLikes = round2(float64(st.TotalLikes) / n)
	return st
}

func generateInsights(comments []AnalyzedComment, st Statistics) []Insight {
	insights := []Insight{}
	if st.TotalComments == 0 {
		return insights
	}
	add := func(category, insight, action string) {
		insights = append(insights, Insight{Category: category, Insight: insight, Action: action})
	}

	pos, neg := st.PositivePercent, st.NegativePercent
	switch {
	case pos > 70:
		add("Overall Sentiment", fmt.Sprintf("Exceptional positive reception (%.2f%% positive)", pos), "Audience loves this content - create similar videos")
	case pos > 50:
		add("Overall Sentiment", fmt.Sprintf("Strong positive reception (%.2f%% positive)", pos), "Content is well-received - maintain this quality")
	case pos > 35:
		add("Overall Sentiment", fmt.Sprintf("Generally positive (%.2f%% positive)", pos), "Good content with room for improvement")
	case neg > pos:
		add("Overall Sentiment", fmt.Sprintf("Negative reception (%.2f%% negative)", neg), "Review content strategy and address concerns")
	default:
		add("Overall Sentiment", fmt.Sprintf("Mixed reception (%.2f%% positive, %.2f%% negative)", pos, neg), "Analyze both positive and negative feedback")
	}

	switch {
	case st.AvgConfidence > 0.6:
		add("Sentiment Confidence", fmt.Sprintf("High confidence in sentiment analysis (%.0f%%)", st.AvgConfidence*100), "Comments express clear opinions - reliable data")
	case st.AvgConfidence < 0.4:
		add("Sentiment Confidence", fmt.Sprintf("Lower sentiment confidence (%.0f%%)", st.AvgConfidence*100), "Many neutral or ambiguous comments")
	}

	switch {
	case neg > 25:
		add("Negative Feedback", fmt.Sprintf("Significant negative feedback (%.2f%%)", neg), "Urgent: Review negative comments and address issues")
	case neg > 15:
		add("Negative Feedback", fmt.Sprintf("Moderate negative feedback (%.2f%%)", neg), "Consider improvements based on criticism")
	}

	switch {
	case st.AvgLikes > 5:
		add("High Engagement", fmt.Sprintf("Exceptional engagement (avg %.1f likes per comment)", st.AvgLikes), "Strong community interaction - keep engaging")
	case st.AvgLikes > 2:
		add("Good Engagement", fmt.Sprintf("Strong engagement (avg %.1f likes per comment)", st.AvgLikes), "Active community participation")
	}

	total := float64(st.TotalComments)
	var veryPositive, veryNegative, questions int
	for _, c := range comments {
		switch c.Sentiment {
		case VeryPositive:
			veryPositive++
		case VeryNegative:
			veryNegative++
		}
		if strings.Contains(c.Text, "?") {
			questions++
		}
	}

	if float64(veryPositive) > total*0.3 {
		add("Highly Praised", fmt.Sprintf("%d highly positive comments (%.1f%%)", veryPositive, float64(veryPositive)/total*100), "Identify what viewers love most")
	}
	if float64(veryNegative) > total*0.15 {
		add("Critical Issues", fmt.Sprintf("%d strongly negative comments", veryNegative), "Address critical concerns immediately")
	}
	if float64(questions) > total*0.25 {
		add("Many Questions", fmt.Sprintf("%d questions found (%.1f%%)", questions, float64(questions)/total*100), "Create FAQ video or pin answers")
	}

	return insights
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
