package factstore

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BuiltinFacts returns the starter question/answer set used when no seed
// file is given.
func BuiltinFacts() []Entry {
	return []Entry{
		{
			Question: "What is RAG?",
			Answer:   "RAG (Retrieval Augmented Generation) is a technique that enhances LLM responses by retrieving relevant information from a knowledge base before generating answers.",
			Category: "Technical",
		},
		{
			Question: "How do I study effectively?",
			Answer:   "Effective studying involves active recall, spaced repetition, understanding concepts rather than memorizing, and taking regular breaks.",
			Category: "Study Tips",
		},
		{
			Question: "What are embeddings?",
			Answer:   "Embeddings are numerical representations of text that capture semantic meaning, allowing computers to understand and compare text similarity.",
			Category: "Technical",
		},
		{
			Question: "How can I improve retention?",
			Answer:   "Improve retention by teaching others, using mnemonics, creating visual aids, and reviewing material multiple times over several days.",
			Category: "Study Tips",
		},
		{
			Question: "What is vector search?",
			Answer:   "Vector search is a method of finding similar items by comparing their vector embeddings in high-dimensional space using distance metrics.",
			Category: "Technical",
		},
	}
}

// seedFile is the YAML layout accepted by LoadSeedFile.
type seedFile struct {
	Facts []Entry `yaml:"facts"`
}

// LoadSeedFile reads fact entries from a YAML file.
func LoadSeedFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return file.Facts, nil
}
