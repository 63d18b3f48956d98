// Package stream collects trial records from a live experiment session over
// WebSocket and assembles them into the observation set consumed by the
// harness. The feed delivers one message per trial, tagged with the subject
// it belongs to, and a terminal end-of-session message.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/shashankyld/cognibench/internal/bench"
	"github.com/shashankyld/cognibench/internal/model"
)

// Trial is one streamed trial record.
type Trial struct {
	Subject  int       `json:"subject"`
	Stimulus []float64 `json:"stimulus"`
	Reward   float64   `json:"reward"`
	Action   float64   `json:"action"`
}

type sessionMsg struct {
	Type  string `json:"type"` // "trial" or "end"
	Trial *Trial `json:"trial,omitempty"`
}

// Collector consumes a session feed.
type Collector struct {
	url string
}

// NewCollector builds a collector for the given feed URL.
func NewCollector(url string) Collector { return Collector{url: url} }

// Collect reads the session until the end-of-session message and returns the
// assembled observation set with one entry per subject index. Connection
// failures before the session ends are retried with exponential backoff;
// trials received so far are kept, since the feed replays from the last
// acknowledged trial on reconnect.
func (c Collector) Collect(ctx context.Context, nSubjects int) (*bench.ObservationSet, error) {
	if nSubjects <= 0 {
		return nil, fmt.Errorf("%w: subject count must be positive, got %d", model.ErrConfiguration, nSubjects)
	}

	subjects := make([]*bench.Observations, nSubjects)
	for i := range subjects {
		subjects[i] = &bench.Observations{}
	}

	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		done, err := c.collectOnce(ctx, subjects)
		if done {
			break
		}
		if err != nil {
			log.Warn().Err(err).Dur("backoff", backoff).Msg("Session feed disconnected, reconnecting")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second
	}

	if nSubjects == 1 {
		return bench.SingleSubject(subjects[0]), nil
	}
	return bench.MultiSubject(subjects...), nil
}

// collectOnce reads from one connection until the session ends or the
// connection drops. It reports done=true only on a clean end-of-session.
func (c Collector) collectOnce(ctx context.Context, subjects []*bench.Observations) (bool, error) {
	log.Info().Str("url", c.url).Msg("Connecting to session feed")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return false, fmt.Errorf("dial failed: %w", err)
	}
	defer func() {
		conn.Close()
		log.Debug().Msg("Session feed connection closed")
	}()

	conn.SetReadLimit(512 * 1024) // 512KB max message size
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return false, fmt.Errorf("read: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var msg sessionMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn().Err(err).Msg("Skipping malformed session message")
			continue
		}

		switch msg.Type {
		case "end":
			return true, nil
		case "trial":
			if msg.Trial == nil {
				log.Warn().Msg("Trial message without payload, skipping")
				continue
			}
			if msg.Trial.Subject < 0 || msg.Trial.Subject >= len(subjects) {
				return false, fmt.Errorf("trial for unknown subject %d (have %d)", msg.Trial.Subject, len(subjects))
			}
			obs := subjects[msg.Trial.Subject]
			obs.Stimuli = append(obs.Stimuli, msg.Trial.Stimulus)
			obs.Rewards = append(obs.Rewards, msg.Trial.Reward)
			obs.Actions = append(obs.Actions, msg.Trial.Action)
		default:
			log.Warn().Str("type", msg.Type).Msg("Unknown session message type, skipping")
		}
	}
}
