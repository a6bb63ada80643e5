package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/infiotinc/rxgqlgenc/client"
	"github.com/infiotinc/rxgqlgenc/client/transport"
	"github.com/infiotinc/rxgqlgenc/config"
)

type env struct {
	cfg      *config.Config
	client   *client.Client
	ws       *transport.Ws
	log      *zap.Logger
	registry *prometheus.Registry
}

// httpTransport sends queries and mutations to the endpoint. A zero
// timeout leaves requests unbounded.
func httpTransport(ep config.Endpoint) *transport.Http {
	opts := make([]transport.HttpRequestOption, 0, len(ep.Headers))
	for k, v := range ep.Headers {
		opts = append(opts, transport.WithHeader(k, v))
	}

	return &transport.Http{
		URL:            ep.URL,
		Client:         &http.Client{Timeout: ep.Timeout},
		RequestOptions: opts,
	}
}

func newEnv(ctx context.Context, filename string, registry *prometheus.Registry) (*env, error) {
	cfg, err := config.LoadConfig(filename)
	if err != nil {
		return nil, err
	}

	log, err := cfg.Logger()
	if err != nil {
		return nil, err
	}

	schema, err := cfg.LoadSchema()
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, log: log, registry: registry}

	var tr transport.Transport = httpTransport(cfg.Endpoint)

	if cfg.Endpoint.WsURL != "" {
		timeout := cfg.Endpoint.Timeout
		if timeout == 0 {
			timeout = time.Minute
		}

		dialOpts := make([]transport.WsDialOption, 0, len(cfg.Endpoint.Headers))
		for k, v := range cfg.Endpoint.Headers {
			dialOpts = append(dialOpts, transport.WithDialHeader(k, v))
		}

		e.ws = &transport.Ws{
			URL:                   cfg.Endpoint.WsURL,
			WebsocketConnProvider: transport.DefaultWebsocketConnProvider(timeout, dialOpts...),
			RetryTimeout:          cfg.Endpoint.RetryTimeout,
			Log:                   log.Named("ws"),
		}
		e.ws.Start(ctx)

		tr = transport.SplitSubscription(e.ws, tr)
	}

	e.client = &client.Client{
		Transport: tr,
		Schema:    schema,
		Log:       log,
		Metrics:   client.NewMetrics(registry),
	}

	return e, nil
}

func (e *env) policy(c *cli.Context) (client.CachePolicy, error) {
	if !c.IsSet("policy") {
		return e.cfg.CachePolicy, nil
	}

	return client.ParseCachePolicy(c.String("policy"))
}

func (e *env) Close() {
	if e.ws != nil {
		_ = e.ws.Close()
	}

	_ = e.log.Sync()
}
