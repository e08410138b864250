package cache

// StagesPerRound is the number of stages a round cycles through.
const StagesPerRound = 3

// Position is a (round, stage) coordinate of the run. -1 means unknown.
type Position struct {
	Round int `json:"round"`
	Stage int `json:"stage"`
}

var UnknownPosition = Position{Round: -1, Stage: -1}

// Known reports whether the position was ever observed.
func (p Position) Known() bool {
	return p.Round >= 0 && p.Stage >= 0
}

// After reports whether p is strictly later than o.
func (p Position) After(o Position) bool {
	return p.Round > o.Round || (p.Round == o.Round && p.Stage > o.Stage)
}

// PreviousOf returns the position immediately before p, clamped at (0, 0).
func PreviousOf(p Position) Position {
	prev := Position{Round: p.Round, Stage: p.Stage - 1}
	if p.Stage == 0 {
		prev = Position{Round: p.Round - 1, Stage: StagesPerRound - 1}
	}
	return Position{Round: max(0, prev.Round), Stage: max(0, prev.Stage)}
}

type CumulativeEntry struct {
	ID              string  `json:"id"`
	Nickname        string  `json:"nickname"`
	RecordedRound   int     `json:"recordedRound"`
	RecordedStage   int     `json:"recordedStage"`
	CumulativeScore float64 `json:"cumulativeScore"`
	LastScore       float64 `json:"lastScore"`
}

func (e CumulativeEntry) recorded() Position {
	return Position{Round: e.RecordedRound, Stage: e.RecordedStage}
}

type CumulativeLeaderboard struct {
	Leaders []CumulativeEntry `json:"leaders"`
	Total   int               `json:"total"`
}

type LeaderboardEntry struct {
	ID       string         `json:"id"`
	Nickname string         `json:"nickname"`
	Score    float64        `json:"score"`
	Values   []HistoryPoint `json:"values"`
}

// HistoryPoint is one score sample; X is unix seconds.
type HistoryPoint struct {
	X int64   `json:"x"`
	Y float64 `json:"y"`
}

type PeerHistory struct {
	ID       string         `json:"id"`
	Nickname string         `json:"nickname"`
	Values   []HistoryPoint `json:"values"`
}

type Leaderboard struct {
	Leaders        []LeaderboardEntry `json:"leaders"`
	Total          int                `json:"total"`
	RewardsHistory []PeerHistory      `json:"rewardsHistory"`
}

type GossipMessage struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Node    string `json:"node"`
}

type Gossip struct {
	Messages []GossipMessage `json:"messages"`
}

func emptyCumulative() CumulativeLeaderboard {
	return CumulativeLeaderboard{Leaders: []CumulativeEntry{}}
}

func emptyLeaderboard() Leaderboard {
	return Leaderboard{Leaders: []LeaderboardEntry{}, RewardsHistory: []PeerHistory{}}
}

func emptyGossip() Gossip {
	return Gossip{Messages: []GossipMessage{}}
}

func (b CumulativeLeaderboard) clone() CumulativeLeaderboard {
	out := CumulativeLeaderboard{Leaders: make([]CumulativeEntry, len(b.Leaders)), Total: b.Total}
	copy(out.Leaders, b.Leaders)
	return out
}

func (b Leaderboard) clone() Leaderboard {
	out := Leaderboard{
		Leaders:        make([]LeaderboardEntry, len(b.Leaders)),
		Total:          b.Total,
		RewardsHistory: make([]PeerHistory, len(b.RewardsHistory)),
	}
	for i, e := range b.Leaders {
		e.Values = clonePoints(e.Values)
		out.Leaders[i] = e
	}
	for i, h := range b.RewardsHistory {
		h.Values = clonePoints(h.Values)
		out.RewardsHistory[i] = h
	}
	return out
}

func (g Gossip) clone() Gossip {
	out := Gossip{Messages: make([]GossipMessage, len(g.Messages))}
	copy(out.Messages, g.Messages)
	return out
}

func clonePoints(points []HistoryPoint) []HistoryPoint {
	out := make([]HistoryPoint, len(points))
	copy(out, points)
	return out
}
