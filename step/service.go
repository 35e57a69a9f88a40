package step

import (
	"context"
	"time"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
)

// CallService performs one request/response call on behalf of b, reporting
// it through the notifier. The call is one unit of work; the caller yields
// its terminal result directly.
func CallService[Req, Resp any](ctx context.Context, b *BaseStep, client core.ServiceClient[Req, Resp], req Req) (Resp, error) {
	start := time.Now()
	resp, err := client.Call(ctx, req)
	logging.LogServiceCall(b.logger, b.Name(), client.Name(), time.Since(start), err)
	if err != nil {
		return resp, err
	}
	b.NotifyServiceCalled(client.Name(), map[string]any{"request": req, "response": resp})
	return resp, nil
}

// ServiceFailure builds the ABORTED result for a failed call.
func (b *BaseStep) ServiceFailure(service string, req any, err error) core.Result {
	f := b.Failure(service)
	f.Goal = req
	f.Reason = err.Error()
	return core.Aborted(f)
}
