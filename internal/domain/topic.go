package domain

import "strings"

// NormalizeTopic trims and upper-cases a product type so "book" and
// " BOOK " address the same subscriber list.
func NormalizeTopic(topic string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(topic))
	if t == "" {
		return "", ErrInvalidTopic
	}
	return t, nil
}
