package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTagInputValidation(t *testing.T) {
	require.Error(t, TagInput{}.ValidateCreate())
	require.Error(t, TagInput{Name: Ptr("x"), Color: Ptr("#12345")}.ValidateCreate())
	require.Error(t, TagInput{Name: Ptr("x"), Color: Ptr("#12345g")}.ValidateCreate())
	require.NoError(t, TagInput{Name: Ptr("x"), Color: Ptr("#A1b2C3")}.ValidateCreate())
	require.NoError(t, TagInput{Name: Ptr("x"), Color: Ptr("")}.ValidateCreate())

	require.NoError(t, TagInput{}.ValidateUpdate())
	require.Error(t, TagInput{Name: Ptr("  ")}.ValidateUpdate())
}

func TestDefaultTagColorIsStable(t *testing.T) {
	color := DefaultTagColor("Tools")
	require.Contains(t, TagColors, color)
	require.Equal(t, color, DefaultTagColor(" tools "))
}

func TestSuggestTags(t *testing.T) {
	require.Equal(t, []string{"Electronics", "Mobile", "Communication"}, SuggestTags("Old Phone"))
	// overlapping keywords are merged
	require.Equal(t, []string{"Electronics", "Mobile", "Communication", "Accessories", "Power"}, SuggestTags("phone charger"))
	require.Empty(t, SuggestTags("spoon"))
}

func TestBuildCategoryTree(t *testing.T) {
	tree := BuildCategoryTree([]Category{
		{ID: "a", Name: "Tools"},
		{ID: "b", Name: "Saws", ParentID: "a"},
		{ID: "c", Name: "Hand saws", ParentID: "b"},
		{ID: "d", Name: "Orphan", ParentID: "gone"},
	})
	require.Len(t, tree, 2)
	require.Equal(t, "Tools", tree[0].Name)
	require.Equal(t, "Hand saws", tree[0].Children[0].Children[0].Name)
	require.Equal(t, "Orphan", tree[1].Name)
	require.Empty(t, tree[1].Children)
}

func TestCategoryTemplates(t *testing.T) {
	tmpl, ok := FindCategoryTemplate(" home & kitchen ")
	require.True(t, ok)
	require.Equal(t, "Home & Kitchen", tmpl.Name)
	require.Equal(t, 16, tmpl.Count())

	_, ok = FindCategoryTemplate("garden")
	require.False(t, ok)
}
