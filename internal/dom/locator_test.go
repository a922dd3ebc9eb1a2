package dom

import (
	"fmt"
	"testing"

	"github.com/go-rod/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFinder matches only the selectors it is given and records lookup order.
type fakeFinder struct {
	matching map[string]bool
	tried    []string
}

func (f *fakeFinder) Element(selector string) (*rod.Element, error) {
	f.tried = append(f.tried, selector)
	if f.matching[selector] {
		return &rod.Element{}, nil
	}
	return nil, fmt.Errorf("no match: %s", selector)
}

func TestLocatorFirstMatchWins(t *testing.T) {
	loc := Locator{Name: "thing", Selectors: []string{"a", "b", "c"}}
	f := &fakeFinder{matching: map[string]bool{"a": true, "c": true}}

	el, sel, err := loc.First(f)
	require.NoError(t, err)
	assert.NotNil(t, el)
	assert.Equal(t, "a", sel)
	assert.Equal(t, []string{"a"}, f.tried, "later selectors must not be tried")
}

func TestLocatorFallsBackInOrder(t *testing.T) {
	loc := Locator{Name: "thing", Selectors: []string{"a", "b", "c"}}
	f := &fakeFinder{matching: map[string]bool{"c": true}}

	_, sel, err := loc.First(f)
	require.NoError(t, err)
	assert.Equal(t, "c", sel)
	assert.Equal(t, []string{"a", "b", "c"}, f.tried)
}

func TestLocatorNoMatch(t *testing.T) {
	loc := Locator{Name: "comment button", Selectors: []string{"a", "b"}}
	f := &fakeFinder{}

	_, _, err := loc.First(f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "comment button not found")
	assert.Equal(t, []string{"a", "b"}, f.tried)
}

func TestLocatorEmptyChain(t *testing.T) {
	loc := Locator{Name: "empty"}
	_, _, err := loc.First(&fakeFinder{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no selectors")
}

func TestDefinedLocatorsHaveFallbacks(t *testing.T) {
	for _, loc := range []Locator{FeedPost, CommentButton, CommentEditor, SubmitComment, PostText, PostAuthor, LoadMore} {
		assert.NotEmpty(t, loc.Name)
		assert.GreaterOrEqual(t, len(loc.Selectors), 2, "%s needs at least one fallback selector", loc.Name)
	}
}
