package classify

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	p := DefaultPatterns()

	m := Search(p.Trade, "Trade: PA")
	assert.Equal(t, Found(0), m, "a match at offset zero is still a match")

	m = Search(p.Trade, "xx Trade: PA")
	assert.True(t, m.Matched)
	assert.Equal(t, 3, m.Pos)

	assert.Equal(t, NotFound, Search(p.Trade, "no label here"))
	assert.Equal(t, NotFound, Search(nil, "Trade:"))
}

func TestMatch_Before(t *testing.T) {
	tests := []struct {
		name string
		a, b Match
		want bool
	}{
		{"earlier", Found(1), Found(5), true},
		{"later", Found(5), Found(1), false},
		{"same", Found(3), Found(3), false},
		{"zero before positive", Found(0), Found(2), true},
		{"match before not found", Found(9), NotFound, true},
		{"not found never before", NotFound, Found(0), false},
		{"not found vs not found", NotFound, NotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Before(tt.b))
		})
	}
}

func TestDefaultPatterns_TradeVariants(t *testing.T) {
	p := DefaultPatterns()
	for _, s := range []string{"Trade:", "trade;", "TRADE :", "Trad0:", "Tr ade:", "Trace:", "Trade:\t"} {
		assert.True(t, Test(p.Trade, s), s)
	}
	for _, s := range []string{"Trade", "Tra:", "Trademark", "Road:"} {
		assert.False(t, Test(p.Trade, s), s)
	}
}

func TestDefaultPatterns_Qualifiers(t *testing.T) {
	p := DefaultPatterns()
	assert.True(t, Test(p.QualifierA, "Trade: PA"))
	assert.True(t, Test(p.QualifierA, "trade: pa."))
	assert.False(t, Test(p.QualifierA, "PAINTER"))
	assert.True(t, Test(p.QualifierB, "Trade: LB"))
	assert.False(t, Test(p.QualifierB, "LBS"))
}

func TestDefaultPatterns_StopAndBlockers(t *testing.T) {
	p := DefaultPatterns()
	assert.True(t, Test(p.Stop, "health and  safety checklist"))
	assert.True(t, Test(p.Stop, "HEALTH AND SAFETY CHECK\nLIST"))
	assert.False(t, Test(p.Stop, "HEALTHANDSAFETY CHECK LIST"))

	require.Len(t, p.Blockers, 2)
	assert.True(t, Test(p.Blockers[0], "job visit details FOR"))
	assert.True(t, Test(p.Blockers[1], "ADDITIONAL   INFO"))
}

func TestCountAll(t *testing.T) {
	kw := DefaultPatterns().Keyword
	assert.Equal(t, 0, CountAll(kw, ""))
	assert.Equal(t, 3, CountAll(kw, "Trade TRADE trade"))
	assert.Equal(t, 0, CountAll(nil, "Trade"))
}

func TestFindRunEnd(t *testing.T) {
	stop := regexp.MustCompile(`(?i)stop`)
	blocks := []string{"a", "STOP", "b", "c", "stop", "d"}

	tests := []struct {
		name  string
		start int
		want  int
	}{
		{"stop after start", 0, 1},
		{"start on stop", 1, 1},
		{"next stop", 2, 4},
		{"no stop until end", 5, 5},
		{"out of range", 6, 6},
		{"negative", -1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindRunEnd(stop, blocks, tt.start))
		})
	}
}

func TestExcerpt(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		lines, chars int
		want         string
	}{
		{"lines then chars", "ab\ncd\nef", 2, 4, "ab\nc"},
		{"fewer lines than limit", "ab\ncd", 5, 100, "ab\ncd"},
		{"char cap counts runes", "äöü", 0, 2, "äö"},
		{"no limits", "a\nb", 0, 0, "a\nb"},
		{"empty", "", 45, 3500, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Excerpt(tt.text, tt.lines, tt.chars))
		})
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"ACGOLD", ModeACGold, false},
		{"acgold", ModeACGold, false},
		{"AC-Gold", ModeACGold, false},
		{" bmd ", ModeBMD, false},
		{"", 0, true},
		{"gold", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
