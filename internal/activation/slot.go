package activation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/kahan44/airdine/internal/model"
)

// Slot is a durable named blob holding the serialized activation map.
// Load returns nil, nil when nothing has been stored yet.
type Slot interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Clear(ctx context.Context) error
}

// envelopeVersion is the current persisted shape.
const envelopeVersion = 1

// errCorrupt marks slot contents that cannot be decoded.
var errCorrupt = errors.New("corrupt activation slot")

// envelope is the persisted form: {"version":1,"records":{"<offerId>":{...}}}.
type envelope struct {
	Version int                               `json:"version"`
	Records map[string]model.ActivationRecord `json:"records"`
}

// encodeRecords serializes records into the current envelope.
func encodeRecords(records map[int64]model.ActivationRecord) ([]byte, error) {
	env := envelope{
		Version: envelopeVersion,
		Records: make(map[string]model.ActivationRecord, len(records)),
	}
	for id, r := range records {
		env.Records[strconv.FormatInt(id, 10)] = r
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encoding activations: %w", err)
	}
	return data, nil
}

// decodeRecords parses slot contents. It accepts the versioned envelope and
// the legacy bare {offerId: record} map. Any shape problem is reported as
// errCorrupt. The bool result reports whether the data used the legacy shape.
func decodeRecords(data []byte) (map[int64]model.ActivationRecord, bool, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return map[int64]model.ActivationRecord{}, false, nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, false, fmt.Errorf("%w: %v", errCorrupt, err)
	}

	rawVersion, versioned := top["version"]
	if !versioned {
		records, err := decodeRecordMap(top)
		return records, true, err
	}

	var version int
	if err := json.Unmarshal(rawVersion, &version); err != nil {
		return nil, false, fmt.Errorf("%w: version: %v", errCorrupt, err)
	}
	if version != envelopeVersion {
		return nil, false, fmt.Errorf("%w: unsupported version %d", errCorrupt, version)
	}

	var raw map[string]json.RawMessage
	if rawRecords, ok := top["records"]; ok && string(rawRecords) != "null" {
		if err := json.Unmarshal(rawRecords, &raw); err != nil {
			return nil, false, fmt.Errorf("%w: records: %v", errCorrupt, err)
		}
	}

	records, err := decodeRecordMap(raw)
	return records, false, err
}

// decodeRecordMap decodes each entry of an offerId-keyed map. The key is
// authoritative for the offer ID.
func decodeRecordMap(raw map[string]json.RawMessage) (map[int64]model.ActivationRecord, error) {
	records := make(map[int64]model.ActivationRecord, len(raw))
	for key, msg := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: offer id %q", errCorrupt, key)
		}

		var r model.ActivationRecord
		if err := json.Unmarshal(msg, &r); err != nil {
			return nil, fmt.Errorf("%w: offer %d: %v", errCorrupt, id, err)
		}
		r.OfferID = id
		records[id] = r
	}
	return records, nil
}
