// Package grpc retries unary gRPC calls based on their status codes.
package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/playson-dev/node-promise-retry/classify"
	"github.com/playson-dev/node-promise-retry/policy"
	"github.com/playson-dev/node-promise-retry/retry"
)

// ClassifierName is the registry name of Classifier.
const ClassifierName = "grpc"

// DefaultKeyFunc maps methods to policy keys.
// "/Service/Method" -> {Namespace: "Service", Name: "Method"}
func DefaultKeyFunc(method string) policy.Key {
	method = strings.TrimPrefix(method, "/")
	svc, name, ok := strings.Cut(method, "/")
	if ok && svc != "" && name != "" && !strings.Contains(name, "/") {
		return policy.Key{Namespace: svc, Name: name}
	}
	return policy.Key{Name: method}
}

// UnaryClientInterceptor returns a gRPC interceptor that retries calls with
// the config exec resolves for each method's key.
func UnaryClientInterceptor(exec *retry.Executor, keyFunc func(method string) policy.Key) grpc.UnaryClientInterceptor {
	if exec == nil {
		exec = retry.DefaultExecutor()
	}
	if keyFunc == nil {
		keyFunc = DefaultKeyFunc
	}
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		key := keyFunc(method)
		cfg, err := exec.ConfigFor(ctx, key)
		if err != nil {
			return err
		}
		adapter := retry.NewPolicyAdapter(exec, method, cfg, Classifier{})
		_, err = retry.Call(ctx, adapter, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, invoker(ctx, method, req, reply, cc, opts...)
		})
		return err
	}
}

// Classifier implements classify.Classifier for gRPC status codes.
type Classifier struct{}

func (Classifier) Classify(err error) classify.Outcome {
	if err == nil {
		return classify.Outcome{Kind: classify.OutcomeSuccess, Reason: "success"}
	}

	// Errors without a gRPC status go through the generic rules.
	st, ok := status.FromError(err)
	if !ok {
		return classify.AutoClassifier{}.Classify(err)
	}

	code := st.Code()
	outcome := classify.Outcome{
		Kind:       classify.OutcomeNonRetryable,
		Reason:     "grpc_" + code.String(),
		Attributes: map[string]string{"grpc_code": code.String()},
	}

	switch code {
	case codes.OK:
		outcome.Kind = classify.OutcomeSuccess
		outcome.Reason = "success"
	case codes.Unavailable, codes.ResourceExhausted, codes.Aborted:
		outcome.Kind = classify.OutcomeRetryable
	case codes.DeadlineExceeded:
		outcome.Kind = classify.OutcomeRetryable
		outcome.Reason = "context_deadline_exceeded"
	case codes.Canceled:
		outcome.Kind = classify.OutcomeAbort
		outcome.Reason = "context_canceled"
	}

	return outcome
}

// Register adds Classifier to reg under ClassifierName so policy files can
// name it in their errors list.
func Register(reg *classify.Registry) {
	reg.Register(ClassifierName, Classifier{})
}
