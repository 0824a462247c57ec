package termtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestLoad(t *testing.T) {
	table, err := Load(
		map[string][]string{
			"en": {"Fire Staff", "Skill", "Engine"},
			"ja": {"炎の杖", "スキル", "エンジン"},
			"de": {"Feuerstab", "Fertigkeit", "Motor"},
		},
		map[string][]*string{
			"en": {strptr("A staff imbued with fire."), nil, strptr("Powers the airship.")},
			"ja": {nil, strptr("特殊な技")},
		},
		"en",
		[]string{"en", "ja", "de"},
	)
	require.NoError(t, err)

	assert.Equal(t, "en", table.TargetLanguage())
	assert.Equal(t, []string{"ja", "de"}, table.SourceLanguages())
	assert.Equal(t, 3, table.VocabSize())

	text, ok := table.TargetTerm(0)
	require.True(t, ok)
	assert.Equal(t, "Fire Staff", text)

	_, ok = table.TargetTerm(3)
	assert.False(t, ok)
}

func TestLoad_TermsSortedLongestFirst(t *testing.T) {
	table, err := Load(
		map[string][]string{
			"en": {"Fire", "Fire Staff", "Fire Staff of Doom"},
			"ja": {"炎", "炎の杖", "破滅の炎の杖"},
		},
		nil, "ja", nil,
	)
	require.NoError(t, err)

	terms := table.TermsFor("en")
	require.Len(t, terms, 3)
	assert.Equal(t, "Fire Staff of Doom", terms[0].Text)
	assert.Equal(t, "Fire Staff", terms[1].Text)
	assert.Equal(t, "Fire", terms[2].Text)

	// Index still refers to the original table position.
	assert.Equal(t, 2, terms[0].Index)
	assert.Equal(t, 0, terms[2].Index)
}

func TestLoad_StableOrderForEqualLengths(t *testing.T) {
	table, err := Load(
		map[string][]string{
			"en": {"Mage", "Monk", "Bard"},
			"ja": {"魔道士", "僧侶", "吟遊詩人"},
		},
		nil, "ja", nil,
	)
	require.NoError(t, err)

	terms := table.TermsFor("en")
	assert.Equal(t, []int{0, 1, 2}, []int{terms[0].Index, terms[1].Index, terms[2].Index})
}

func TestLoad_NoSourceLanguage(t *testing.T) {
	_, err := Load(map[string][]string{"en": {"Skill"}}, nil, "en", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no source language")
}

func TestLoad_SourceLengthMismatch(t *testing.T) {
	_, err := Load(
		map[string][]string{
			"ja": {"スキル", "エンジン"},
			"de": {"Fertigkeit"},
		},
		nil, "en", []string{"ja", "de"},
	)
	require.Error(t, err)
}

func TestLoad_ShortTargetTableAllowed(t *testing.T) {
	// The target array may have fewer entries than the sources; those indices
	// simply have no translation.
	table, err := Load(
		map[string][]string{
			"ja": {"スキル", "エンジン", "炎の杖"},
			"en": {"Skill", "Engine"},
		},
		nil, "en", []string{"ja"},
	)
	require.NoError(t, err)

	_, ok := table.TargetTerm(2)
	assert.False(t, ok)
}

func TestLoad_NormalizesRegionSubtags(t *testing.T) {
	table, err := Load(
		map[string][]string{
			"en-US": {"Skill"},
			"ja-JP": {"スキル"},
		},
		nil, "en", nil,
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"ja"}, table.SourceLanguages())
	text, ok := table.TargetTerm(0)
	require.True(t, ok)
	assert.Equal(t, "Skill", text)
}

func TestLoad_CollidingBaseCodesRejected(t *testing.T) {
	// "en" and "en-US" reduce to the same base code; accepting both would let
	// one vocabulary silently shadow the other.
	_, err := Load(
		map[string][]string{
			"en":    {"Skill"},
			"en-US": {"Skill"},
			"ja":    {"スキル"},
		},
		nil, "ja", nil,
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "normalize")
}

func TestLoad_CollidingDefinitionLanguagesRejected(t *testing.T) {
	_, err := Load(
		map[string][]string{
			"en": {"Skill"},
			"ja": {"スキル"},
		},
		map[string][]*string{
			"ja":    {strptr("特殊な技")},
			"ja-JP": {strptr("技能")},
		},
		"en", nil,
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "definition languages")
}

func TestLoad_InvalidLanguage(t *testing.T) {
	_, err := Load(map[string][]string{"!!": {"x"}, "ja": {"スキル"}}, nil, "en", nil)
	require.Error(t, err)
}

func TestDefinition_TargetThenSourceFallback(t *testing.T) {
	table, err := Load(
		map[string][]string{
			"en": {"Skill", "Engine"},
			"ja": {"スキル", "エンジン"},
		},
		map[string][]*string{
			"en": {strptr("a special move")},
			"ja": {strptr("特殊な技"), strptr("動力機関")},
		},
		"en",
		[]string{"en", "ja"},
	)
	require.NoError(t, err)

	// Target-language definition wins when present.
	def, ok := table.Definition("ja", 0)
	require.True(t, ok)
	assert.Equal(t, "a special move", def)

	// Falls back to the source language's definition.
	def, ok = table.Definition("ja", 1)
	require.True(t, ok)
	assert.Equal(t, "動力機関", def)

	_, ok = table.Definition("ja", 5)
	assert.False(t, ok)
}

func TestSourceLanguages_DeclaredOrderWins(t *testing.T) {
	table, err := Load(
		map[string][]string{
			"de": {"Fertigkeit"},
			"fr": {"compétence"},
			"ja": {"スキル"},
		},
		nil, "en", []string{"ja", "fr"},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"ja", "fr", "de"}, table.SourceLanguages())
}
