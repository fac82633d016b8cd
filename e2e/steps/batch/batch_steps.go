package batch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cucumber/godog"

	"pharmachain/pkg/domain"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Do(method, path, token string, body any) error
	Status() int
	Field(name string) (any, error)
	BatchID(name string) string
	TokenFor(party string) (string, error)
	Address(party string) (domain.Address, error)
}

// RegisterSteps registers batch lifecycle step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &batchSteps{tc: tc}

	ctx.Step(`^the registry is running$`, steps.registryIsRunning)
	ctx.Step(`^"([^"]*)" registers batch "([^"]*)" of "([^"]*)" expiring in (\d+) days$`, steps.registerBatch)
	ctx.Step(`^"([^"]*)" transfers batch "([^"]*)" to "([^"]*)"$`, steps.transferBatch)
	ctx.Step(`^"([^"]*)" marks batch "([^"]*)" as spoiled because "([^"]*)"$`, steps.spoilBatch)
	ctx.Step(`^"([^"]*)" updates the certificate of batch "([^"]*)" to "([^"]*)"$`, steps.updateCertificate)
	ctx.Step(`^"([^"]*)" expires batch "([^"]*)"$`, steps.expireBatch)
	ctx.Step(`^an anonymous caller transfers batch "([^"]*)" to "([^"]*)"$`, steps.anonymousTransfer)

	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the error code should be "([^"]*)"$`, steps.errorCodeShouldBe)
	ctx.Step(`^batch "([^"]*)" should be held by "([^"]*)"$`, steps.shouldBeHeldBy)
	ctx.Step(`^batch "([^"]*)" should have certificate "([^"]*)"$`, steps.shouldHaveCertificate)
	ctx.Step(`^batch "([^"]*)" should be valid$`, steps.shouldBeValid)
	ctx.Step(`^batch "([^"]*)" should not be valid$`, steps.shouldNotBeValid)
	ctx.Step(`^batch "([^"]*)" should not exist$`, steps.shouldNotExist)
}

type batchSteps struct {
	tc TestContext
}

func (s *batchSteps) registryIsRunning(ctx context.Context) error {
	if err := s.tc.Do(http.MethodGet, "/healthz", "", nil); err != nil {
		return err
	}
	return s.statusShouldBe(ctx, http.StatusOK)
}

func (s *batchSteps) registerBatch(ctx context.Context, party, name, drug string, days int) error {
	token, err := s.tc.TokenFor(party)
	if err != nil {
		return err
	}
	now := time.Now()
	return s.tc.Do(http.MethodPost, "/batches", token, map[string]any{
		"batch_id":         s.tc.BatchID(name),
		"drug_name":        drug,
		"manufacturer":     "E2E Pharma",
		"origin":           "DE",
		"manufacture_time": now.Add(-time.Hour).Unix(),
		"expiry_time":      now.Add(time.Duration(days) * 24 * time.Hour).Unix(),
		"certificate_hash": "QmE2E",
	})
}

func (s *batchSteps) transferBatch(ctx context.Context, from, name, to string) error {
	token, err := s.tc.TokenFor(from)
	if err != nil {
		return err
	}
	return s.transfer(token, name, to)
}

func (s *batchSteps) anonymousTransfer(ctx context.Context, name, to string) error {
	return s.transfer("", name, to)
}

func (s *batchSteps) transfer(token, name, to string) error {
	addr, err := s.tc.Address(to)
	if err != nil {
		return err
	}
	return s.tc.Do(http.MethodPost, "/batches/"+s.tc.BatchID(name)+"/transfer", token, map[string]any{
		"new_holder": addr.Checksum(),
	})
}

func (s *batchSteps) spoilBatch(ctx context.Context, party, name, reason string) error {
	token, err := s.tc.TokenFor(party)
	if err != nil {
		return err
	}
	return s.tc.Do(http.MethodPost, "/batches/"+s.tc.BatchID(name)+"/spoil", token, map[string]any{
		"reason": reason,
	})
}

func (s *batchSteps) expireBatch(ctx context.Context, party, name string) error {
	token, err := s.tc.TokenFor(party)
	if err != nil {
		return err
	}
	return s.tc.Do(http.MethodPost, "/batches/"+s.tc.BatchID(name)+"/expire", token, nil)
}

func (s *batchSteps) updateCertificate(ctx context.Context, party, name, hash string) error {
	token, err := s.tc.TokenFor(party)
	if err != nil {
		return err
	}
	return s.tc.Do(http.MethodPut, "/batches/"+s.tc.BatchID(name)+"/certificate", token, map[string]any{
		"certificate_hash": hash,
	})
}

func (s *batchSteps) statusShouldBe(ctx context.Context, want int) error {
	if got := s.tc.Status(); got != want {
		return fmt.Errorf("expected status %d, got %d", want, got)
	}
	return nil
}

func (s *batchSteps) errorCodeShouldBe(ctx context.Context, code string) error {
	return s.fieldShouldEqual("error", code)
}

func (s *batchSteps) shouldBeHeldBy(ctx context.Context, name, party string) error {
	addr, err := s.tc.Address(party)
	if err != nil {
		return err
	}
	if err := s.tc.Do(http.MethodGet, "/batches/"+s.tc.BatchID(name), "", nil); err != nil {
		return err
	}
	return s.fieldShouldEqual("current_holder", addr.Checksum())
}

func (s *batchSteps) shouldHaveCertificate(ctx context.Context, name, hash string) error {
	if err := s.tc.Do(http.MethodGet, "/batches/"+s.tc.BatchID(name), "", nil); err != nil {
		return err
	}
	return s.fieldShouldEqual("certificate_hash", hash)
}

func (s *batchSteps) shouldBeValid(ctx context.Context, name string) error {
	return s.validityShouldBe(name, true)
}

func (s *batchSteps) shouldNotBeValid(ctx context.Context, name string) error {
	return s.validityShouldBe(name, false)
}

func (s *batchSteps) validityShouldBe(name string, want bool) error {
	if err := s.tc.Do(http.MethodGet, "/batches/"+s.tc.BatchID(name)+"/validity", "", nil); err != nil {
		return err
	}
	return s.fieldShouldEqual("valid", want)
}

func (s *batchSteps) shouldNotExist(ctx context.Context, name string) error {
	if err := s.tc.Do(http.MethodGet, "/batches/"+s.tc.BatchID(name)+"/exists", "", nil); err != nil {
		return err
	}
	return s.fieldShouldEqual("exists", false)
}

func (s *batchSteps) fieldShouldEqual(field string, want any) error {
	got, err := s.tc.Field(field)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("expected %s=%v, got %v", field, want, got)
	}
	return nil
}
