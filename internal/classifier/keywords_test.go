package classifier

import (
	"testing"

	"github.com/Ranjiththeeti/harass/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordOverride_Match(t *testing.T) {
	k := NewKeywordOverride(nil)

	tests := []struct {
		text    string
		keyword string
		matched bool
	}{
		{"you're so annoying", "annoying", true},
		{"SHUT UP already", "shut up", true},
		{"What an IDIOT, and stupid too", "idiot", true},
		{"Thank you for your help", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			kw, ok := k.Match(tt.text)
			assert.Equal(t, tt.matched, ok)
			assert.Equal(t, tt.keyword, kw)
		})
	}
}

func TestKeywordOverride_CustomKeywords(t *testing.T) {
	k := NewKeywordOverride([]string{"  Troll ", ""})

	kw, ok := k.Match("you troll")
	assert.True(t, ok)
	assert.Equal(t, "troll", kw)

	_, ok = k.Match("you idiot")
	assert.False(t, ok)
}

func TestKeywordOverride_Apply(t *testing.T) {
	k := NewKeywordOverride(nil)

	v, ok := k.Apply(models.SafeVerdict(), "you're so annoying")
	require.True(t, ok)

	assert.True(t, v.IsFlagged)
	assert.Equal(t, 0.3, v.SafetyScore)
	require.NotNil(t, v.HarassmentType)
	assert.Equal(t, models.Bullying, *v.HarassmentType)
	require.NotNil(t, v.FlaggedReason)
	assert.Equal(t, "Contains harassment language: 'annoying'", *v.FlaggedReason)
}

func TestKeywordOverride_ApplyKeepsFlaggedVerdict(t *testing.T) {
	k := NewKeywordOverride(nil)

	threat := models.Threats
	reason := "Threatens violence"
	in := models.Verdict{IsFlagged: true, SafetyScore: 0.05, HarassmentType: &threat, FlaggedReason: &reason}

	out, ok := k.Apply(in, "I will hurt you, idiot")
	assert.False(t, ok)
	assert.Equal(t, in, out)
}
