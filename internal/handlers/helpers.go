package handlers

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/JustinTDCT/cinevault-core/internal/corerr"
	"github.com/JustinTDCT/cinevault-core/internal/repository"
)

func parseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, corerr.Validation("invalid id: " + s)
	}
	return id, nil
}

func marshalPayload(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, corerr.Unknown("marshal job payload", err)
	}
	return b, nil
}

// dependentOn returns enqueue options making the new job wait for parentID
// (§5: enrich-metadata depends on its scan, publish depends on its enrich).
func dependentOn(parentID uuid.UUID) repository.EnqueueOptions {
	opts := repository.DefaultEnqueueOptions()
	opts.DependsOn = []uuid.UUID{parentID}
	return opts
}
