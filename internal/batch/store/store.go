// Package store persists batch records. Stores are pure I/O: they report
// storage facts with pkg/platform/sentinel errors and leave every lifecycle
// rule to the registry service.
package store

import (
	"fmt"

	"pharmachain/pkg/domain"
)

func parseHolder(batchID, raw string) (domain.Address, error) {
	addr, err := domain.ParseAddress(raw)
	if err != nil {
		return "", fmt.Errorf("stored holder of batch %s: %w", batchID, err)
	}
	return addr, nil
}
