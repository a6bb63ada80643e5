package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/infiotinc/rxgqlgenc/client"
	"github.com/infiotinc/rxgqlgenc/internal/starwars"
	"github.com/infiotinc/rxgqlgenc/rx"
)

var operationFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "query",
		Aliases: []string{"q"},
		Usage:   "GraphQL document, read from the file argument when empty",
	},
	&cli.StringFlag{
		Name:  "operation",
		Usage: "operation to run when the document has several",
	},
	&cli.StringFlag{
		Name:  "variables",
		Usage: "variables as a JSON object",
	},
}

var policyFlag = &cli.StringFlag{
	Name:  "policy",
	Usage: "cache policy, defaults to the config's",
}

var fetchCommand = &cli.Command{
	Name:      "fetch",
	Usage:     "run a query and print its result",
	ArgsUsage: "[document file]",
	Flags:     append([]cli.Flag{policyFlag}, operationFlags...),
	Action: func(c *cli.Context) error {
		return withClient(c, func(ctx context.Context, env *env, op client.Operation) error {
			policy, err := env.policy(c)
			if err != nil {
				return err
			}

			v, err := rx.Single(ctx, rx.Fetch[json.RawMessage](env.client, op, policy))
			if err != nil {
				return err
			}

			return printJSON(c.App.Writer, v)
		})
	},
}

var watchCommand = &cli.Command{
	Name:      "watch",
	Usage:     "run a query and print its result every time it changes",
	ArgsUsage: "[document file]",
	Flags: append([]cli.Flag{
		policyFlag,
		&cli.DurationFlag{
			Name:  "poll",
			Usage: "refetch from the server at this interval",
		},
		&cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "serve prometheus metrics on this address",
		},
	}, operationFlags...),
	Action: func(c *cli.Context) error {
		return withClient(c, func(ctx context.Context, env *env, op client.Operation) error {
			policy, err := env.policy(c)
			if err != nil {
				return err
			}

			if addr := c.String("metrics-addr"); addr != "" {
				go func() {
					err := http.ListenAndServe(addr, promhttp.HandlerFor(env.registry, promhttp.HandlerOpts{}))
					env.log.Error("metrics server stopped", zap.Error(err))
				}()
			}

			if every := c.Duration("poll"); every > 0 {
				go poll(ctx, env, op, every)
			}

			return rx.Watch[json.RawMessage](env.client, op, policy).Observe(ctx, func(v json.RawMessage) error {
				return printJSON(c.App.Writer, v)
			})
		})
	},
}

// poll refetches op from the server, the watch picks up changes from the store
func poll(ctx context.Context, env *env, op client.Operation, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		env.client.Fetch(ctx, op, client.FetchIgnoringCacheData, func(_ *client.Result, err error) {
			if err != nil {
				env.log.Warn("poll failed", zap.Error(err))
			}
		})
	}
}

var mutateCommand = &cli.Command{
	Name:      "mutate",
	Usage:     "run a mutation and print its result",
	ArgsUsage: "[document file]",
	Flags:     operationFlags,
	Action: func(c *cli.Context) error {
		return withClient(c, func(ctx context.Context, env *env, op client.Operation) error {
			v, err := rx.Single(ctx, rx.Perform[json.RawMessage](env.client, op))
			if err != nil {
				return err
			}

			return printJSON(c.App.Writer, v)
		})
	},
}

var subscribeCommand = &cli.Command{
	Name:      "subscribe",
	Usage:     "start a subscription and print every payload",
	ArgsUsage: "[document file]",
	Flags:     operationFlags,
	Action: func(c *cli.Context) error {
		return withClient(c, func(ctx context.Context, env *env, op client.Operation) error {
			if env.ws == nil {
				return errors.New("subscriptions need endpoint.ws_url")
			}

			return rx.Subscribe[json.RawMessage](env.client, op).Observe(ctx, func(v json.RawMessage) error {
				return printJSON(c.App.Writer, v)
			})
		})
	},
}

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "serve the Star Wars demo API",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "addr",
			Value: ":8080",
		},
	},
	Action: func(c *cli.Context) error {
		log, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		mux := http.NewServeMux()
		mux.Handle("/", starwars.NewHandler(starwars.NewData()))
		mux.Handle("/metrics", promhttp.Handler())

		addr := c.String("addr")
		log.Info("serving", zap.String("addr", addr))

		return http.ListenAndServe(addr, mux)
	},
}

func withClient(c *cli.Context, fn func(ctx context.Context, env *env, op client.Operation) error) error {
	op, err := readOperation(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	env, err := newEnv(ctx, c.String("config"), prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer env.Close()

	err = fn(ctx, env, op)
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

func readOperation(c *cli.Context) (client.Operation, error) {
	op := client.Operation{
		Document:      c.String("query"),
		OperationName: c.String("operation"),
	}

	if op.Document == "" {
		if c.NArg() == 0 {
			return op, errors.New("a document is required, pass --query or a file")
		}

		b, err := os.ReadFile(c.Args().First())
		if err != nil {
			return op, errors.Wrap(err, "unable to read document")
		}

		op.Document = string(b)
	}

	if v := c.String("variables"); v != "" {
		if err := json.Unmarshal([]byte(v), &op.Variables); err != nil {
			return op, errors.Wrap(err, "invalid variables")
		}
	}

	return op, nil
}

func printJSON(w io.Writer, v json.RawMessage) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))

	return err
}
