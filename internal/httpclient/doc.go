// Package httpclient performs the HTTP requests of a load test.
//
// [RequestBuilder] turns the configured target into GET requests carrying the
// extra headers and the API credential:
//
//	builder, err := httpclient.NewRequestBuilderWithAuth(cfg.Target, provider)
//	req, err := builder.Build(ctx, httpclient.ResolveEndpoint(cfg.Target))
//
// [Executor] sends one request under a per-request timeout and classifies
// the result as success, timeout, connection failure or HTTP error:
//
//	exec := httpclient.NewExecutor(httpclient.NewClient(concurrency), builder, tp)
//	outcome := exec.Execute(ctx, endpoint, 30*time.Second)
//
// A timed out request reports the timeout itself as its latency. Error
// responses keep a short detail taken from the JSON body when possible.
package httpclient
