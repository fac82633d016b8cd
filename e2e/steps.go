package e2e

import (
	"context"

	"github.com/cucumber/godog"

	"pharmachain/e2e/steps/batch"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		tc.Reset()
		return ctx, nil
	})

	batch.RegisterSteps(ctx, tc)
}
