package summary

// English stop words filtered before keyword scoring. Covers the function
// words that dominate conversational transcripts; deliberately small.
var stopwords = map[string]bool{}

func init() {
	for _, w := range []string{
		"a", "about", "above", "after", "again", "all", "also", "am", "an",
		"and", "any", "are", "as", "at", "be", "because", "been", "before",
		"being", "below", "between", "both", "but", "by", "can", "could",
		"did", "do", "does", "doing", "down", "during", "each", "few", "for",
		"from", "further", "get", "going", "gonna", "got", "had", "has",
		"have", "having", "he", "her", "here", "hers", "him", "his", "how",
		"i", "if", "in", "into", "is", "it", "its", "just", "like", "me",
		"more", "most", "my", "no", "nor", "not", "now", "of", "off", "on",
		"once", "only", "or", "other", "our", "out", "over", "own", "really",
		"right", "same", "she", "should", "so", "some", "such", "than",
		"that", "the", "their", "them", "then", "there", "these", "they",
		"this", "those", "through", "to", "too", "under", "until", "up",
		"very", "was", "we", "were", "what", "when", "where", "which",
		"while", "who", "whom", "why", "will", "with", "would", "you",
		"your", "yours",
	} {
		stopwords[w] = true
	}
}
