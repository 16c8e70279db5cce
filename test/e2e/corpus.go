// Package e2e exercises the kioku HTTP API end to end with a seeded corpus.
package e2e

import "strings"

// Document is one corpus entry. Text is a single sentence short enough to
// survive splitting as one chunk, so querying the exact text embeds
// identically and must rank first.
type Document struct {
	Topic string
	Text  string
}

// KeywordCase asserts that a term lookup finds a chunk containing the term.
// Each term appears in exactly one corpus document.
type KeywordCase struct {
	Term        string
	Description string
}

// Corpus holds documents and keyword cases for the end-to-end tests.
type Corpus struct {
	Documents    []Document
	KeywordCases []KeywordCase
}

// BuildCorpus returns the seeded corpus. Every document carries a distinctive
// term so keyword lookups can assert the right chunk came back.
func BuildCorpus() *Corpus {
	docs := []Document{
		{"tokyo", "Tokyo is the capital of Japan and hosts the Imperial Palace."},
		{"danube", "The Danube flows through ten countries before reaching the Black Sea."},
		{"kilimanjaro", "Mount Kilimanjaro is the highest free-standing mountain on Earth."},
		{"atacama", "The Atacama Desert is the driest nonpolar place on the planet."},
		{"baikal", "Lake Baikal holds about a fifth of the unfrozen fresh water on Earth."},
		{"reykjavik", "Reykjavik is the northernmost capital of a sovereign state."},
		{"amazon", "The Amazon rainforest produces a large share of the oxygen in the air."},
		{"sahara", "The Sahara expands and contracts with seasonal rainfall cycles."},
		{"everest", "Mount Everest grows a few millimeters taller every year."},
		{"venice", "Venice is built on more than a hundred small islands in a lagoon."},
		{"gobi", "The Gobi Desert spans southern Mongolia and northern China."},
		{"nile", "The Nile is generally regarded as the longest river in Africa."},
		{"fuji", "Mount Fuji is an active stratovolcano that last erupted in 1707."},
		{"outback", "The Australian Outback covers most of the interior of the continent."},
		{"andes", "The Andes form the longest continental mountain range in the world."},
		{"kyoto", "Kyoto served as the seat of the Japanese court for a thousand years."},
	}
	cases := []KeywordCase{
		{"Danube", "river name finds the Danube chunk"},
		{"Kilimanjaro", "mountain name finds the Kilimanjaro chunk"},
		{"Baikal", "lake name finds the Baikal chunk"},
		{"Reykjavik", "city name finds the Reykjavik chunk"},
		{"stratovolcano", "rare noun finds the Fuji chunk"},
		{"lagoon", "rare noun finds the Venice chunk"},
		{"Outback", "region name finds the Outback chunk"},
		{"Andes", "range name finds the Andes chunk"},
	}
	return &Corpus{Documents: docs, KeywordCases: cases}
}

// DocumentsContaining returns the corpus documents whose text contains term.
func (c *Corpus) DocumentsContaining(term string) []Document {
	var out []Document
	for _, d := range c.Documents {
		if strings.Contains(d.Text, term) {
			out = append(out, d)
		}
	}
	return out
}
