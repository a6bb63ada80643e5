package starwars

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/handler"
	gqltransport "github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/infiotinc/rxgqlgenc/client/cache"
	"github.com/infiotinc/rxgqlgenc/client/executor"
)

// NewServer serves d over POST and graphql-ws websockets
func NewServer(d *Data) *handler.Server {
	srv := handler.New(&executableSchema{data: d})

	srv.AddTransport(gqltransport.POST{})
	srv.AddTransport(gqltransport.Websocket{
		KeepAlivePingInterval: 500 * time.Millisecond,
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	})

	return srv
}

// NewHandler is NewServer plus a playground on /playground
func NewHandler(d *Data) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/playground", playground.Handler("Star Wars", "/"))
	mux.Handle("/", NewServer(d))

	return mux
}

type executableSchema struct {
	data *Data
}

func (e *executableSchema) Schema() *ast.Schema {
	return e.data.schema
}

func (e *executableSchema) Complexity(typeName, fieldName string, childComplexity int, args map[string]interface{}) (int, bool) {
	return 0, false
}

func (e *executableSchema) Exec(ctx context.Context) graphql.ResponseHandler {
	oc := graphql.GetOperationContext(ctx)

	switch oc.Operation.Operation {
	case ast.Mutation:
		return graphql.OneShot(respond(e.data.mutate(oc.Operation, oc.Variables)))
	case ast.Subscription:
		return e.data.subscribe(oc.Operation, oc.Variables)
	default:
		return graphql.OneShot(respond(e.data.read(oc.Operation, oc.Variables, cache.QueryRoot, nil)))
	}
}

func respond(data map[string]interface{}, err error) *graphql.Response {
	if err != nil {
		return &graphql.Response{Errors: gqlerror.List{gqlerror.Errorf("%v", err)}}
	}

	b, err := json.Marshal(data)
	if err != nil {
		return &graphql.Response{Errors: gqlerror.List{gqlerror.Errorf("%v", err)}}
	}

	return &graphql.Response{Data: b}
}

func argument(f *ast.Field, name string, vars map[string]interface{}) (interface{}, error) {
	arg := f.Arguments.ForName(name)
	if arg == nil {
		return nil, nil
	}

	return arg.Value.Value(vars)
}

func (d *Data) mutate(op *ast.OperationDefinition, vars map[string]interface{}) (map[string]interface{}, error) {
	root := cache.Fields{}

	for _, sel := range op.SelectionSet {
		f, ok := sel.(*ast.Field)
		if !ok || f.Name == "__typename" {
			continue
		}

		if f.Name != "createReview" {
			return nil, errors.Errorf("unknown mutation %v", f.Name)
		}

		episode, err := argument(f, "episode", vars)
		if err != nil {
			return nil, err
		}

		review, err := argument(f, "review", vars)
		if err != nil {
			return nil, err
		}

		input, _ := review.(map[string]interface{})
		key, err := d.AddReview(episode, input["stars"], input["commentary"])
		if err != nil {
			return nil, err
		}

		skey, err := executor.StorageKey(f, vars)
		if err != nil {
			return nil, err
		}

		root[skey] = cache.Reference{Key: key}
	}

	return d.read(op, vars, cache.MutationRoot, root)
}

func (d *Data) subscribe(op *ast.OperationDefinition, vars map[string]interface{}) graphql.ResponseHandler {
	if len(op.SelectionSet) != 1 {
		return graphql.OneShot(respond(nil, errors.New("subscriptions must select a single field")))
	}

	f, ok := op.SelectionSet[0].(*ast.Field)
	if !ok || f.Name != "reviewAdded" {
		return graphql.OneShot(respond(nil, errors.New("unknown subscription")))
	}

	episode, err := argument(f, "episode", vars)
	if err != nil {
		return graphql.OneShot(respond(nil, err))
	}

	skey, err := executor.StorageKey(f, vars)
	if err != nil {
		return graphql.OneShot(respond(nil, err))
	}

	ch, unsubscribe := d.watchReviews()

	return func(ctx context.Context) *graphql.Response {
		for {
			select {
			case <-ctx.Done():
				unsubscribe()
				return nil
			case ev := <-ch:
				if episode != nil && ev.episode != episode {
					continue
				}

				return respond(d.read(op, vars, cache.SubscriptionRoot, cache.Fields{
					skey: cache.Reference{Key: ev.key},
				}))
			}
		}
	}
}
