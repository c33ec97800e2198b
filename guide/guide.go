// Package guide embeds the markdown pages shown by "pim guide".
package guide

import (
	"embed"
	"sort"
	"strings"
)

// mainTopic is the page shown when no topic is given.
const mainTopic = "guide"

//go:embed *.md
var pages embed.FS

// Get returns the markdown for topic, or the main guide when topic is empty.
func Get(topic string) (string, error) {
	if topic == "" {
		topic = mainTopic
	}
	b, err := pages.ReadFile(topic + ".md")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// List returns the topic names other than the main guide, sorted.
func List() ([]string, error) {
	entries, err := pages.ReadDir(".")
	if err != nil {
		return nil, err
	}
	var topics []string
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".md")
		if name != mainTopic {
			topics = append(topics, name)
		}
	}
	sort.Strings(topics)
	return topics, nil
}
