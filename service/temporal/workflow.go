package temporal

import (
	"fmt"
	"time"

	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/brojonat/xrplwatch/service/monitor"
)

var a *Activities // for type-safe activity invocation

// MonitorWorkflow runs one monitoring session and, if asked, sends the
// digest afterwards. It is triggered by a Temporal schedule.
//
// A failed session is recorded in the result and does not stop the digest,
// matching a one-shot run. A failed digest fails the workflow.
func MonitorWorkflow(ctx workflow.Context, input MonitorInput) (*MonitorResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("MonitorWorkflow started", "account", input.Account, "send_digest", input.SendDigest)

	result := &MonitorResult{
		Account: input.Account,
		RunTime: workflow.Now(ctx),
	}

	sessionCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	})

	var session *monitor.SessionResult
	err := workflow.ExecuteActivity(sessionCtx, a.RunSession, RunSessionInput{Account: input.Account}).Get(ctx, &session)
	if err != nil {
		logger.Error("session failed", "account", input.Account, "error", err)
		errMsg := err.Error()
		result.SessionError = &errMsg
	} else {
		result.Session = session
		logger.Info("session completed",
			"account", input.Account,
			"processed", session.Processed,
			"journaled", session.Journaled,
		)
	}

	if !input.SendDigest {
		return result, nil
	}

	// Chunks already delivered would be resent on retry, so the digest is
	// attempted once and the next scheduled run tries again.
	digestCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporalsdk.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	var digest *SendDigestResult
	err = workflow.ExecuteActivity(digestCtx, a.SendDigest, SendDigestInput{Account: input.Account}).Get(ctx, &digest)
	if err != nil {
		logger.Error("digest failed", "account", input.Account, "error", err)
		return result, fmt.Errorf("failed to send digest: %w", err)
	}
	result.DigestSent = digest.Sent

	logger.Info("MonitorWorkflow completed", "account", input.Account, "digest_sent", result.DigestSent)
	return result, nil
}
