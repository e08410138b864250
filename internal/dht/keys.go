package dht

import "fmt"

// RewardsKey is the key the coordinator publishes per-peer rewards under.
func RewardsKey(round, stage int) string {
	return fmt.Sprintf("rewards_%d_%d", round, stage)
}

// OutputsKey is the key a peer publishes its stage outputs under.
func OutputsKey(peerID string, round, stage int) string {
	return fmt.Sprintf("outputs_%s_%d_%d", peerID, round, stage)
}
