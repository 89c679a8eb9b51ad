// Package identify is the core, scoring sentences against per-language n-gram profiles and picking the best match.
package identify

// IClassifier defines the interface for language identification engines
type IClassifier interface {
	// Classify returns the predicted language and every language's score
	Classify(sentence string) (Prediction, error)

	// Languages returns the candidate languages in tie-break order
	Languages() []Language
}
