package starwars

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/infiotinc/rxgqlgenc/client/cache"
	"github.com/infiotinc/rxgqlgenc/client/executor"
)

func character(typename, id, name string, friends []string, appearsIn []interface{}) cache.Fields {
	refs := make([]interface{}, len(friends))
	for i, f := range friends {
		refs[i] = cache.Reference{Key: f}
	}

	return cache.Fields{
		"__typename": typename,
		"id":         id,
		"name":       name,
		"friends":    refs,
		"appearsIn":  appearsIn,
	}
}

func seed() cache.RecordSet {
	all := []interface{}{"NEWHOPE", "EMPIRE", "JEDI"}

	rs := cache.RecordSet{
		cache.QueryRoot: {
			"hero":                       cache.Reference{Key: "Droid:2001"},
			`hero(episode:"NEWHOPE")`:    cache.Reference{Key: "Droid:2001"},
			`hero(episode:"EMPIRE")`:     cache.Reference{Key: "Human:1000"},
			`hero(episode:"JEDI")`:       cache.Reference{Key: "Droid:2001"},
			`human(id:"1000")`:           cache.Reference{Key: "Human:1000"},
			`human(id:"1002")`:           cache.Reference{Key: "Human:1002"},
			`human(id:"1003")`:           cache.Reference{Key: "Human:1003"},
			`droid(id:"2000")`:           cache.Reference{Key: "Droid:2000"},
			`droid(id:"2001")`:           cache.Reference{Key: "Droid:2001"},
			`reviews(episode:"NEWHOPE")`: []interface{}{},
			`reviews(episode:"EMPIRE")`:  []interface{}{},
			`reviews(episode:"JEDI")`:    []interface{}{},
		},
		"Human:1000": character("Human", "1000", "Luke Skywalker", []string{"Human:1002", "Human:1003", "Droid:2000", "Droid:2001"}, all),
		"Human:1002": character("Human", "1002", "Han Solo", []string{"Human:1000", "Human:1003", "Droid:2001"}, all),
		"Human:1003": character("Human", "1003", "Leia Organa", []string{"Human:1000", "Human:1002", "Droid:2000", "Droid:2001"}, all),
		"Droid:2000": character("Droid", "2000", "C-3PO", []string{"Human:1000", "Human:1002", "Human:1003", "Droid:2001"}, all),
		"Droid:2001": character("Droid", "2001", "R2-D2", []string{"Human:1000", "Human:1002", "Human:1003"}, all),
	}

	rs["Human:1000"]["height"] = 1.72
	rs["Human:1002"]["height"] = 1.8
	rs["Human:1003"]["height"] = 1.5
	rs["Droid:2000"]["primaryFunction"] = "Protocol"
	rs["Droid:2001"]["primaryFunction"] = "Astromech"

	return rs
}

type reviewEvent struct {
	key     string
	episode interface{}
}

// Data is the server side of the Star Wars API, kept as normalized records
type Data struct {
	schema *ast.Schema
	store  *cache.Store

	m       sync.Mutex
	reviews []reviewEvent
	subs    map[int]chan reviewEvent
	nextSub int
}

func NewData() *Data {
	return &Data{
		schema: Schema(),
		store:  cache.NewStore(cache.NewInMemoryNormalizedCache(seed())),
		subs:   map[int]chan reviewEvent{},
	}
}

func (d *Data) read(op *ast.OperationDefinition, vars map[string]interface{}, rootKey string, root cache.Fields) (map[string]interface{}, error) {
	var data map[string]interface{}
	err := d.store.Read(func(load cache.Loader) error {
		if root != nil {
			base := load
			load = func(key string) (cache.Fields, error) {
				if key == rootKey {
					return root, nil
				}

				return base(key)
			}
		}

		var err error
		data, _, err = executor.Read(d.schema, op, vars, rootKey, load)

		return err
	})

	return data, err
}

// AddReview records a review and pushes it to reviewAdded subscribers
func (d *Data) AddReview(episode interface{}, stars interface{}, commentary interface{}) (string, error) {
	d.m.Lock()
	defer d.m.Unlock()

	key := fmt.Sprintf("Review:%v", len(d.reviews)+1)

	records := cache.RecordSet{
		key: {
			"__typename": "Review",
			"episode":    episode,
			"stars":      stars,
			"commentary": commentary,
		},
	}

	if episode != nil {
		field := fmt.Sprintf(`reviews(episode:"%v")`, episode)

		var list []interface{}
		err := d.store.Read(func(load cache.Loader) error {
			root, err := load(cache.QueryRoot)
			if err != nil {
				return err
			}
			existing, _ := root[field].([]interface{})
			list = append(append(list, existing...), cache.Reference{Key: key})

			return nil
		})
		if err != nil {
			return "", err
		}

		records[cache.QueryRoot] = cache.Fields{field: list}
	}

	if _, err := d.store.Publish(records, uuid.Nil); err != nil {
		return "", err
	}

	ev := reviewEvent{key: key, episode: episode}
	d.reviews = append(d.reviews, ev)

	for _, ch := range d.subs {
		select {
		case ch <- ev:
		default:
		}
	}

	return key, nil
}

// watchReviews replays the reviews recorded so far, then follows new ones
func (d *Data) watchReviews() (<-chan reviewEvent, func()) {
	d.m.Lock()
	defer d.m.Unlock()

	ch := make(chan reviewEvent, 64+len(d.reviews))
	for _, ev := range d.reviews {
		ch <- ev
	}

	id := d.nextSub
	d.nextSub++
	d.subs[id] = ch

	return ch, func() {
		d.m.Lock()
		delete(d.subs, id)
		d.m.Unlock()
	}
}
