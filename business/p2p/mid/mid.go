// Package mid contains the set of middleware functions for the P2P server.
package mid

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/simplechain/node/foundation/p2p"
	"go.uber.org/zap"
)

// Logger writes some information about the request to the logs in the
// format: TraceID : COMMAND <- IP ADDR (latency)
func Logger(log *zap.SugaredLogger) p2p.Middleware {
	m := func(handler p2p.Handler) p2p.Handler {
		h := func(ctx context.Context, payload string) (string, error) {
			v, err := p2p.GetValues(ctx)
			if err != nil {
				return "", err
			}

			log.Infow("p2p request started", "traceid", v.TraceID, "command", v.Command, "remoteaddr", v.Remote, "size", len(payload))

			resp, err := handler(ctx, payload)
			if err != nil {
				log.Infow("p2p request completed", "traceid", v.TraceID, "command", v.Command, "remoteaddr", v.Remote, "since", time.Since(v.Now), "ERROR", err)
				return resp, err
			}

			log.Infow("p2p request completed", "traceid", v.TraceID, "command", v.Command, "remoteaddr", v.Remote, "since", time.Since(v.Now))

			return resp, nil
		}

		return h
	}

	return m
}

// Panics recovers from panics and converts the panic to an error so the
// peer gets an answer and the node keeps running. The stack trace is only
// logged.
func Panics(log *zap.SugaredLogger) p2p.Middleware {
	m := func(handler p2p.Handler) p2p.Handler {
		h := func(ctx context.Context, payload string) (resp string, err error) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Errorw("p2p panic", "traceid", p2p.GetTraceID(ctx), "PANIC", rec, "TRACE", string(debug.Stack()))
					err = fmt.Errorf("PANIC [%v]", rec)
				}
			}()

			return handler(ctx, payload)
		}

		return h
	}

	return m
}
