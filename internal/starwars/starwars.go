// Package starwars holds the Star Wars schema, the operations run against it
// and an in-process server answering them.
package starwars

import (
	_ "embed"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/infiotinc/rxgqlgenc/client/cache"
	"github.com/infiotinc/rxgqlgenc/client/executor"
)

//go:embed schema.graphql
var schemaSDL string

func Schema() *ast.Schema {
	schema, err := executor.LoadSchema(&ast.Source{Name: "schema.graphql", Input: schemaSDL})
	if err != nil {
		panic(err)
	}

	return schema
}

const HeroNameQuery = `query HeroName($episode: Episode) {
  hero(episode: $episode) {
    __typename
    name
  }
}`

const HeroAndFriendsNamesQuery = `query HeroAndFriendsNames($episode: Episode) {
  hero(episode: $episode) {
    __typename
    name
    friends {
      __typename
      name
    }
  }
}`

const HeroDetailsQuery = `query HeroDetails($episode: Episode) {
  hero(episode: $episode) {
    ...CharacterName
    ... on Droid {
      primaryFunction
    }
    ... on Human {
      height
    }
  }
}

fragment CharacterName on Character {
  __typename
  id
  name
}`

const ReviewsQuery = `query Reviews($episode: Episode!) {
  reviews(episode: $episode) {
    __typename
    stars
    commentary
  }
}`

const CreateAwesomeReviewMutation = `mutation CreateAwesomeReview {
  createReview(episode: JEDI, review: {stars: 10, commentary: "This is awesome!"}) {
    __typename
    stars
    commentary
  }
}`

const CreateReviewMutation = `mutation CreateReview($episode: Episode, $review: ReviewInput!) {
  createReview(episode: $episode, review: $review) {
    __typename
    stars
    commentary
  }
}`

const ReviewAddedSubscription = `subscription ReviewAdded($episode: Episode) {
  reviewAdded(episode: $episode) {
    __typename
    episode
    stars
    commentary
  }
}`

type Character struct {
	Typename        string       `json:"__typename"`
	ID              string       `json:"id,omitempty"`
	Name            string       `json:"name"`
	Friends         []*Character `json:"friends,omitempty"`
	PrimaryFunction *string      `json:"primaryFunction,omitempty"`
	Height          *float64     `json:"height,omitempty"`
}

type HeroName struct {
	Hero *Character `json:"hero"`
}

type HeroAndFriendsNames struct {
	Hero *Character `json:"hero"`
}

type HeroDetails struct {
	Hero *Character `json:"hero"`
}

type Review struct {
	Typename   string  `json:"__typename"`
	Episode    *string `json:"episode,omitempty"`
	Stars      int     `json:"stars"`
	Commentary *string `json:"commentary"`
}

type Reviews struct {
	Reviews []Review `json:"reviews"`
}

type CreateReview struct {
	CreateReview *Review `json:"createReview"`
}

type ReviewAdded struct {
	ReviewAdded *Review `json:"reviewAdded"`
}

// HeroAndFriendsRecords is R2-D2 and his friends, keyed by response path
func HeroAndFriendsRecords() cache.RecordSet {
	return cache.RecordSet{
		"QUERY_ROOT": {"hero": cache.Reference{Key: "QUERY_ROOT.hero"}},
		"QUERY_ROOT.hero": {
			"name":       "R2-D2",
			"__typename": "Droid",
			"friends": []interface{}{
				cache.Reference{Key: "QUERY_ROOT.hero.friends.0"},
				cache.Reference{Key: "QUERY_ROOT.hero.friends.1"},
				cache.Reference{Key: "QUERY_ROOT.hero.friends.2"},
			},
		},
		"QUERY_ROOT.hero.friends.0": {"__typename": "Human", "name": "Luke Skywalker"},
		"QUERY_ROOT.hero.friends.1": {"__typename": "Human", "name": "Han Solo"},
		"QUERY_ROOT.hero.friends.2": {"__typename": "Human", "name": "Leia Organa"},
	}
}

// FriendNames lists the names of c's friends
func FriendNames(c *Character) []string {
	if c == nil {
		return nil
	}

	names := make([]string, 0, len(c.Friends))
	for _, f := range c.Friends {
		if f != nil {
			names = append(names, f.Name)
		}
	}

	return names
}
