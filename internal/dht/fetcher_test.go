package dht

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	entries map[string]Entry
	errs    map[string]error
	calls   []string
	beams   []int
	latest  []bool
}

func (s *fakeStore) Get(_ context.Context, key string, beamSize int, latest bool) (Entry, error) {
	s.calls = append(s.calls, key)
	s.beams = append(s.beams, beamSize)
	s.latest = append(s.latest, latest)
	if err, ok := s.errs[key]; ok {
		return Entry{}, err
	}
	e, ok := s.entries[key]
	if !ok {
		return Entry{}, fmt.Errorf("get %s: %w", key, ErrNotFound)
	}
	return e, nil
}

func TestNewFetcher_NilStore(t *testing.T) {
	_, err := NewFetcher(nil, 100)
	require.Error(t, err)
}

func TestNewFetcher_DefaultBeamSize(t *testing.T) {
	store := &fakeStore{}
	f, err := NewFetcher(store, 0)
	require.NoError(t, err)

	_, _, err = f.Fetch(context.Background(), "k", true)
	require.NoError(t, err)
	assert.Equal(t, []int{DefaultBeamSize}, store.beams)
}

func TestFetcherRewards(t *testing.T) {
	store := &fakeStore{entries: map[string]Entry{
		RewardsKey(3, 1): {Found: true, Value: []byte(`{"QmA":5,"QmB":3.25}`)},
		RewardsKey(3, 2): {Found: true, Subkeys: map[string]Record{
			"QmA": {Value: []byte(`7`)},
		}},
		RewardsKey(4, 0): {Found: true, Value: []byte(`{}`)},
	}}
	f, err := NewFetcher(store, 50)
	require.NoError(t, err)

	rewards, ok, err := f.Rewards(context.Background(), 3, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]float64{"QmA": 5, "QmB": 3.25}, rewards)

	rewards, ok, err = f.Rewards(context.Background(), 3, 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]float64{"QmA": 7}, rewards)

	_, ok, err = f.Rewards(context.Background(), 4, 0)
	require.NoError(t, err)
	assert.False(t, ok, "empty rewards snapshot is absent")

	_, ok, err = f.Rewards(context.Background(), 9, 9)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []bool{true, true, true, true}, store.latest, "rewards are always fetched with latest")
	assert.Equal(t, 50, store.beams[0])
}

func TestFetcherOutputs(t *testing.T) {
	store := &fakeStore{entries: map[string]Entry{
		OutputsKey("QmA", 1, 0): {Found: true, Subkeys: map[string]Record{
			"what is 2+2?": {Value: []byte(`[100.5,{"answer":"4"}]`)},
			"what is 3+3?": {Value: []byte(`[101,{"answer":"6"}]`)},
		}},
	}}
	f, err := NewFetcher(store, 100)
	require.NoError(t, err)

	outputs, ok, err := f.Outputs(context.Background(), "QmA", 1, 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, outputs, 2)
	assert.Equal(t, 100.5, outputs["what is 2+2?"].Timestamp)
	assert.Equal(t, "6", outputs["what is 3+3?"].Output["answer"])
	assert.Equal(t, []bool{false}, store.latest)
}

func TestFetcherAbsentOnUnavailable(t *testing.T) {
	store := &fakeStore{errs: map[string]error{
		RewardsKey(1, 1): fmt.Errorf("get: %w", ErrUnavailable),
		RewardsKey(1, 2): context.DeadlineExceeded,
	}}
	f, err := NewFetcher(store, 100)
	require.NoError(t, err)

	_, ok, err := f.Rewards(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = f.Rewards(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFetcherUnexpectedErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	store := &fakeStore{
		errs: map[string]error{RewardsKey(1, 1): boom},
		entries: map[string]Entry{
			RewardsKey(2, 0): {Found: true, Value: []byte(`"not a map"`)},
		},
	}
	f, err := NewFetcher(store, 100)
	require.NoError(t, err)

	_, _, err = f.Rewards(context.Background(), 1, 1)
	require.ErrorIs(t, err, boom)

	_, _, err = f.Rewards(context.Background(), 2, 0)
	require.Error(t, err)
}

func TestStageOutputTuple(t *testing.T) {
	var out StageOutput
	require.NoError(t, out.UnmarshalJSON([]byte(`[12.5, {"answer": "yes"}]`)))
	assert.Equal(t, 12.5, out.Timestamp)
	assert.Equal(t, "yes", out.Output["answer"])

	require.Error(t, out.UnmarshalJSON([]byte(`[12.5]`)))
	require.Error(t, out.UnmarshalJSON([]byte(`["soon", {}]`)))
	require.Error(t, out.UnmarshalJSON([]byte(`[1, "text"]`)))

	encoded, err := StageOutput{Timestamp: 3, Output: map[string]any{"answer": "a"}}.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `[3, {"answer": "a"}]`, string(encoded))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "rewards_12_2", RewardsKey(12, 2))
	assert.Equal(t, "outputs_QmPeer_3_0", OutputsKey("QmPeer", 3, 0))
}
