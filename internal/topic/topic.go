// Package topic classifies user messages into conversation topics.
//
// Classification drives which specialized persona instructions the chat
// layer uses. It is plain keyword matching: deterministic, cheap, and
// independent of any provider.
package topic

import "strings"

// Topic is a closed set of conversation topics.
type Topic string

const (
	HairEducation         Topic = "hair_education"
	BusinessMentorship    Topic = "business_mentorship"
	ProductRecommendation Topic = "product_recommendation"
	Troubleshooting       Topic = "troubleshooting"
	General               Topic = "general"
)

// All lists every topic, general last.
func All() []Topic {
	return []Topic{
		HairEducation,
		BusinessMentorship,
		ProductRecommendation,
		Troubleshooting,
		General,
	}
}

// keywords maps each non-general topic to its detection keywords.
// Matching is case-insensitive substring containment.
var keywords = map[Topic][]string{
	HairEducation: {
		"hair", "curl", "braid", "style", "texture", "moisture", "protein",
		"wash", "condition", "detangle", "protective", "natural", "relaxed",
		"extension", "wig", "loc", "twist", "coil", "strand", "scalp", "growth",
	},
	BusinessMentorship: {
		"business", "client", "price", "pricing", "marketing", "social media",
		"instagram", "booking", "salon", "brand", "money", "income", "profit",
		"customer", "service", "charge", "start", "grow", "scale", "invest",
	},
	ProductRecommendation: {
		"product", "recommend", "buy", "purchase", "ingredient", "shampoo",
		"conditioner", "oil", "cream", "gel", "spray", "serum", "mask", "treatment",
	},
	Troubleshooting: {
		"problem", "issue", "help", "wrong", "damage", "break", "dry", "brittle",
		"falling", "thinning", "not working", "failed", "mistake", "fix", "repair",
	},
}

// tiePriority resolves equal keyword scores, most specific topic first.
var tiePriority = []Topic{
	Troubleshooting,
	ProductRecommendation,
	BusinessMentorship,
	HairEducation,
}

// Detect classifies a message by counting keyword hits per topic.
// No hits at all yields General; ties resolve by tiePriority.
func Detect(message string) Topic {
	lower := strings.ToLower(message)

	scores := make(map[Topic]int, len(keywords))
	maxScore := 0
	for t, kws := range keywords {
		for _, kw := range kws {
			if strings.Contains(lower, kw) {
				scores[t]++
			}
		}
		if scores[t] > maxScore {
			maxScore = scores[t]
		}
	}

	if maxScore == 0 {
		return General
	}

	for _, t := range tiePriority {
		if scores[t] == maxScore {
			return t
		}
	}
	return General
}

// Valid reports whether s names a known topic.
func Valid(s string) bool {
	switch Topic(s) {
	case HairEducation, BusinessMentorship, ProductRecommendation, Troubleshooting, General:
		return true
	}
	return false
}
