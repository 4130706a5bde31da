package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/switcherapi/switcher-client-go/internal/strategy"
)

// wireEnvelope mirrors the on-the-wire/on-disk envelope shape:
// {"data":{"domain":{...}}}. Both the snapshot file and the GraphQL
// resolve response share this envelope.
type wireEnvelope struct {
	Data struct {
		Domain Domain `json:"domain"`
	} `json:"data"`
}

// Parse decodes a wire envelope into a ready-to-query Snapshot. Unknown
// fields are ignored (default json.Unmarshal behavior); missing fields
// default to their Go zero value: null becomes an empty string, false
// for booleans, 0 for version, an empty slice for lists. A strategy whose
// operation is not valid for its kind (strategy.ValidOperation) is an
// error.
func Parse(raw []byte) (*Snapshot, error) {
	var env wireEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	for _, g := range env.Data.Domain.Groups {
		for _, c := range g.Configs {
			for _, s := range c.Strategies {
				if !strategy.ValidOperation(s.Strategy, s.Operation) {
					return nil, fmt.Errorf("snapshot: config %q: operation %q is not valid for %s", c.Key, s.Operation, s.Strategy)
				}
			}
		}
	}
	return Build(env.Data.Domain), nil
}

// Marshal re-encodes a Snapshot back into the wire envelope, for
// FileStore.Save / RedisStore.Save.
func Marshal(s *Snapshot) ([]byte, error) {
	var env wireEnvelope
	if s != nil {
		env.Data.Domain = s.Domain
	}
	return json.MarshalIndent(env, "", "  ")
}

// placeholderJSON is written when loading from a location that has no
// file yet: {"data":{"domain":{"version":0}}}.
var placeholderJSON = []byte(`{"data":{"domain":{"version":0}}}`)
