package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalName(t *testing.T) {
	cases := map[string]string{
		"  liam ":  "Liam",
		"MARY-ANN": "Maryann",
		"o'neil3":  "Oneil",
		"":         "",
		"  123 ":   "",
		"zoë":      "Zoë",
		"jAsPeR\t": "Jasper",
	}
	for in, want := range cases {
		assert.Equal(t, want, CanonicalName(in), "input %q", in)
	}
}

func TestCanonicalNamesDedup(t *testing.T) {
	assert.Equal(t, []string{"Liam", "Emma"}, CanonicalNames([]string{"liam", " LIAM", "", "emma"}))
}

func TestParsePopulation(t *testing.T) {
	for _, s := range []string{"m", "Male", "BOY", "b"} {
		p, err := ParsePopulation(s)
		require.NoError(t, err)
		assert.Equal(t, Boy, p)
	}
	for _, s := range []string{"f", "female", "Girl", "G"} {
		p, err := ParsePopulation(s)
		require.NoError(t, err)
		assert.Equal(t, Girl, p)
	}
	p, err := ParsePopulation("None")
	require.NoError(t, err)
	assert.Equal(t, Population(""), p)

	_, err = ParsePopulation("cat")
	assert.ErrorIs(t, err, ErrInvalidPopulation)
}

func TestParsePreferenceRoundTrip(t *testing.T) {
	flat := map[string]string{
		"gender":         "m",
		"family_name":    "smith ",
		"mother_name":    "ann",
		"sibling_names":  `["liam", "Noah"]`,
		"names_to_avoid": `["jasper"]`,
		"other":          "  short and sweet ",
		"style_option":   "classic",
		"class_option":   "upper class",
	}
	set, err := ParsePreferences(flat)
	require.NoError(t, err)

	assert.Equal(t, Boy, set.Population())
	assert.Equal(t, []string{"Liam", "Noah"}, set.Siblings())
	assert.Equal(t, []string{"Jasper"}, set.NamesToAvoid())
	assert.Equal(t, []string{"Ann"}, set.ParentNames())
	assert.Equal(t, "short and sweet", set.Other())
	assert.Equal(t, map[string]string{"style_option": "Classic", "class_option": "Upper Class"}, set.TraitChoices())

	again, err := ParsePreferences(set.Flat())
	require.NoError(t, err)
	assert.Equal(t, set, again)

	native := set.Native()
	assert.Equal(t, "boy", native["gender"])
	assert.Equal(t, []string{"Liam", "Noah"}, native["sibling_names"])
	assert.Equal(t, `["Liam","Noah"]`, set[KeySiblingNames].String())
}

func TestParsePreferenceEmptyValues(t *testing.T) {
	p, err := ParsePreference(KeySiblingNames, "[]")
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = ParsePreference(KeyFamilyName, "  ")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestParsePreferenceRejectsInvalid(t *testing.T) {
	_, err := ParsePreference(KeySiblingNames, `"liam"`)
	assert.ErrorIs(t, err, ErrInvalidPreference)

	_, err = ParsePreference("style_option", "Retro")
	assert.ErrorIs(t, err, ErrInvalidPreference)

	_, err = ParsePreference("overall_rating", "A Good Name")
	assert.ErrorIs(t, err, ErrInvalidPreference)

	_, err = ParsePreference("origin", "Irish")
	assert.ErrorIs(t, err, ErrInvalidPreference)

	_, err = ParsePreference(KeyGender, "x")
	assert.ErrorIs(t, err, ErrInvalidPreference)
}

func TestSentiments(t *testing.T) {
	set, err := NormalizeSentiments(map[string]Sentiment{
		"pascal ": {Kind: "DISLIKED"},
		"emma":    {Kind: "liked", Reason: " soft sound "},
		"Jayden":  {Kind: "saved"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Emma", "Jayden", "Pascal"}, set.Names())
	assert.Equal(t, []string{"Pascal"}, set.NamesOf(Disliked))
	assert.True(t, set.HasReason())

	byKind := set.ByKind()
	assert.Equal(t, []NamedSentiment{{Name: "Emma", Reason: "soft sound"}}, byKind[Liked])
	assert.Equal(t, []NamedSentiment{{Name: "Pascal"}}, byKind[Disliked])
	assert.Len(t, byKind[Saved], 1)

	_, err = NormalizeSentiments(map[string]Sentiment{"Liam": {Kind: "loved"}})
	assert.ErrorIs(t, err, ErrInvalidSentiment)
}
