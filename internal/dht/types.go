package dht

import (
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

// Record is a single stored value and the unix time it expires at.
type Record struct {
	Value          json.RawMessage `json:"value"`
	ExpirationTime float64         `json:"expiration_time"`
}

// Entry is the result of one lookup. A key holds either a plain Value or a
// set of Subkeys, each carrying its own record.
type Entry struct {
	Found          bool              `json:"found"`
	Value          json.RawMessage   `json:"value,omitempty"`
	ExpirationTime float64           `json:"expiration_time"`
	Subkeys        map[string]Record `json:"subkeys,omitempty"`
}

// HasSubkeys reports whether the entry was stored as a subkey dictionary.
func (e Entry) HasSubkeys() bool {
	return len(e.Subkeys) > 0
}

// StageOutput is what a peer publishes for one question during a stage. It is
// stored as a [timestamp, output] tuple.
type StageOutput struct {
	Timestamp float64
	Output    map[string]any
}

func (o *StageOutput) UnmarshalJSON(data []byte) error {
	var tuple []any
	if err := sonic.Unmarshal(data, &tuple); err != nil {
		return err
	}

	if len(tuple) != 2 {
		return fmt.Errorf("expected tuple of length 2, got %d", len(tuple))
	}

	switch ts := tuple[0].(type) {
	case float64:
		o.Timestamp = ts
	case int64:
		o.Timestamp = float64(ts)
	default:
		return fmt.Errorf("expected number for timestamp, got %T", tuple[0])
	}

	switch v := tuple[1].(type) {
	case map[string]any:
		o.Output = v
	case nil:
		o.Output = map[string]any{}
	default:
		return fmt.Errorf("expected object for output, got %T", tuple[1])
	}

	return nil
}

func (o StageOutput) MarshalJSON() ([]byte, error) {
	output := o.Output
	if output == nil {
		output = map[string]any{}
	}
	return sonic.Marshal([]any{o.Timestamp, output})
}

// decodeRewards accepts either {"peer": score, ...} as the plain value or one
// subkey per peer.
func decodeRewards(e Entry) (map[string]float64, error) {
	if e.HasSubkeys() {
		rewards := make(map[string]float64, len(e.Subkeys))
		for peer, rec := range e.Subkeys {
			var score float64
			if err := sonic.Unmarshal(rec.Value, &score); err != nil {
				return nil, fmt.Errorf("decode reward for peer %s: %w", peer, err)
			}
			rewards[peer] = score
		}
		return rewards, nil
	}

	if len(e.Value) == 0 {
		return map[string]float64{}, nil
	}
	var rewards map[string]float64
	if err := sonic.Unmarshal(e.Value, &rewards); err != nil {
		return nil, fmt.Errorf("decode rewards: %w", err)
	}
	return rewards, nil
}

// decodeOutputs accepts either one subkey per question or the whole
// {"question": [ts, output], ...} dictionary as the plain value.
func decodeOutputs(e Entry) (map[string]StageOutput, error) {
	if e.HasSubkeys() {
		outputs := make(map[string]StageOutput, len(e.Subkeys))
		for question, rec := range e.Subkeys {
			var out StageOutput
			if err := sonic.Unmarshal(rec.Value, &out); err != nil {
				return nil, fmt.Errorf("decode output for question %q: %w", question, err)
			}
			outputs[question] = out
		}
		return outputs, nil
	}

	if len(e.Value) == 0 {
		return map[string]StageOutput{}, nil
	}
	var outputs map[string]StageOutput
	if err := sonic.Unmarshal(e.Value, &outputs); err != nil {
		return nil, fmt.Errorf("decode outputs: %w", err)
	}
	return outputs, nil
}
