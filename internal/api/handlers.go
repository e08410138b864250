package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

var (
	errNeverPolled = errors.New("cache has not completed a poll yet")
	errStale       = errors.New("cache is stale")
)

type healthStatus struct {
	Status     string `json:"status"`
	LastPolled *int64 `json:"lastPolled"`
}

func (s *Server) healthz(c *fiber.Ctx) error {
	at, ok := s.reader.LastPolled()
	if !ok {
		return c.Status(fiber.StatusServiceUnavailable).
			JSON(createResponse(healthStatus{Status: "starting"}, errNeverPolled))
	}

	unix := at.Unix()
	status := healthStatus{Status: "ok", LastPolled: &unix}
	if s.maxStaleness > 0 && s.now().Sub(at) > s.maxStaleness {
		status.Status = "stale"
		return c.Status(fiber.StatusServiceUnavailable).JSON(createResponse(status, errStale))
	}
	return c.JSON(createResponse(status, nil))
}

type roundAndStage struct {
	Round int `json:"round"`
	Stage int `json:"stage"`
}

func (s *Server) roundAndStage(c *fiber.Ctx) error {
	round, stage := s.reader.RoundAndStage()
	return c.JSON(createResponse(roundAndStage{Round: round, Stage: stage}, nil))
}

func (s *Server) leaderboard(c *fiber.Ctx) error {
	return c.JSON(createResponse(s.reader.Leaderboard(), nil))
}

func (s *Server) leaderboardCumulative(c *fiber.Ctx) error {
	return c.JSON(createResponse(s.reader.CumulativeLeaderboard(), nil))
}

func (s *Server) gossip(c *fiber.Ctx) error {
	return c.JSON(createResponse(s.reader.Gossip(), nil))
}

