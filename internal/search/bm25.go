package search

import (
	"math"
	"strings"
)

const (
	k1 = 1.2
	b  = 0.75
)

// corpus holds collection statistics gathered over every scanned document,
// candidates or not.
type corpus struct {
	docCount    int
	totalLength int
	docFreq     map[string]int
}

func newCorpus(terms []string) *corpus {
	df := make(map[string]int, len(terms))
	for _, t := range terms {
		df[t] = 0
	}
	return &corpus{docFreq: df}
}

// add records one document's length and which terms it contains.
func (c *corpus) add(text string, terms []string) int {
	length := len(strings.Fields(text))
	c.docCount++
	c.totalLength += length
	for _, t := range terms {
		if strings.Contains(text, t) {
			c.docFreq[t]++
		}
	}
	return length
}

func (c *corpus) avgDocLength() float64 {
	if c.docCount == 0 || c.totalLength == 0 {
		return 1
	}
	return float64(c.totalLength) / float64(c.docCount)
}

// idf = ln(1 + (N - df + 0.5) / (df + 0.5))
func (c *corpus) idf(df int) float64 {
	n := float64(c.docCount)
	d := float64(df)
	return math.Log(1 + (n-d+0.5)/(d+0.5))
}

// termScore is the BM25 contribution of one term.
func (c *corpus) termScore(tf, df, docLen int) float64 {
	if tf == 0 {
		return 0
	}
	f := float64(tf)
	num := f * (k1 + 1)
	denom := f + k1*(1-b+b*(float64(docLen)/c.avgDocLength()))
	return c.idf(df) * (num / denom)
}

// score sums termScore over the candidate's term frequencies.
func (c *corpus) score(cand *candidate) float64 {
	var s float64
	for term, tf := range cand.termFreq {
		s += c.termScore(tf, c.docFreq[term], cand.docLength)
	}
	return s
}
