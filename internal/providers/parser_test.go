package providers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseProviderList(t *testing.T) {
	refs := ParseProviderList("mock|openai:key1|openai:key2")
	require.Len(t, refs, 3)
	require.Equal(t, ProviderRef{Raw: "openai:key1", Name: "openai", KeyAlias: "key1"}, refs[1])
}

func TestParseProviderListNormalises(t *testing.T) {
	refs := ParseProviderList(" OpenAI : work , groq|openai:work|| mock ")
	require.Equal(t, []ProviderRef{
		{Raw: "openai:work", Name: "openai", KeyAlias: "work"},
		{Raw: "groq", Name: "groq"},
		{Raw: "mock", Name: "mock"},
	}, refs)
}

func TestParseProviderListEmpty(t *testing.T) {
	require.Empty(t, ParseProviderList(""))
	require.Empty(t, ParseProviderList(" | , "))
	require.Empty(t, ParseProviderList("none"))
	require.Empty(t, ParseProviderList(":alias"))
}
