package search

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testCorpus(docs, totalLen int) *corpus {
	return &corpus{docCount: docs, totalLength: totalLen, docFreq: map[string]int{}}
}

func TestIDF(t *testing.T) {
	c := testCorpus(10, 100)
	assert.InDelta(t, math.Log(1+(10-1+0.5)/(1+0.5)), c.idf(1), 1e-12)
	assert.Greater(t, c.idf(0), c.idf(10))
	assert.Greater(t, c.idf(10), 0.0, "idf stays positive even when every doc has the term")
}

func TestTermScore_MonotonicInTermFrequency(t *testing.T) {
	c := testCorpus(50, 5000)
	prev := c.termScore(0, 5, 100)
	assert.Zero(t, prev)
	for tf := 1; tf <= 50; tf++ {
		s := c.termScore(tf, 5, 100)
		assert.GreaterOrEqual(t, s, prev, "tf=%d", tf)
		prev = s
	}
}

func TestTermScore_MonotonicInDocumentFrequency(t *testing.T) {
	c := testCorpus(50, 5000)
	prev := c.termScore(3, 1, 100)
	for df := 2; df <= 50; df++ {
		s := c.termScore(3, df, 100)
		assert.LessOrEqual(t, s, prev, "df=%d", df)
		prev = s
	}
}

func TestTermScore_LongerDocumentsScoreLower(t *testing.T) {
	c := testCorpus(10, 1000)
	assert.Greater(t, c.termScore(2, 3, 50), c.termScore(2, 3, 500))
}

func TestCorpus_Add(t *testing.T) {
	c := newCorpus([]string{"go", "rust"})
	assert.Equal(t, 3, c.add("go is fun", []string{"go", "rust"}))
	assert.Equal(t, 2, c.add("go go", []string{"go", "rust"}))
	c.add("", []string{"go", "rust"})

	assert.Equal(t, 3, c.docCount)
	assert.Equal(t, 5, c.totalLength)
	assert.Equal(t, 2, c.docFreq["go"])
	assert.Equal(t, 0, c.docFreq["rust"])
	assert.InDelta(t, 5.0/3.0, c.avgDocLength(), 1e-12)
}

func TestCorpus_EmptyAverage(t *testing.T) {
	assert.Equal(t, 1.0, newCorpus(nil).avgDocLength())
}
