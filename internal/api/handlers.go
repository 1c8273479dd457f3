package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/scholarmatch/disambiguate/internal/engine"
	"github.com/scholarmatch/disambiguate/internal/mention"
	"github.com/scholarmatch/disambiguate/internal/normalize"
)

func (s *Server) health(c *gin.Context) {
	SuccessResponse(c, gin.H{"status": "ok"})
}

// decideMention implements POST /v1/mentions: build a mention.Mention from
// the request body and run it through the shared engine. decideMu
// serializes this against every other concurrent call so two mentions for
// the same not-yet-existing author can't both retrieve zero candidates and
// both insert a new one.
func (s *Server) decideMention(c *gin.Context) {
	var wire mention.Wire
	if err := c.ShouldBindJSON(&wire); err != nil {
		BadRequestError(c, err.Error())
		return
	}

	in := wire.ToInput()
	in.ORCID = normalize.CanonicalizeORCID(in.ORCID)
	m := mention.New(in)

	s.decideMu.Lock()
	result, err := s.eng.Decide(c.Request.Context(), m)
	s.decideMu.Unlock()
	if err != nil {
		var invalid *engine.InvalidMentionError
		if errors.As(err, &invalid) {
			BadRequestError(c, invalid.Error())
			return
		}
		InternalError(c, err.Error())
		return
	}

	s.counters.record(result.Decision)
	SuccessResponse(c, result)
}

// getAuthor implements GET /v1/authors/:id.
func (s *Server) getAuthor(c *gin.Context) {
	a, ok := s.repo.Get(c.Param("id"))
	if !ok {
		NotFoundError(c, "author not found")
		return
	}
	SuccessResponse(c, a)
}

// stats implements GET /v1/stats: author and decision counters.
func (s *Server) stats(c *gin.Context) {
	SuccessResponse(c, gin.H{
		"author_count": s.repo.Count(),
		"decisions":    s.counters.snapshot(),
	})
}

// review implements GET /v1/review?limit=N: the tail of the redacted
// review queue. It only lists entries; resolving or triaging them is a
// separate, out-of-band workflow.
func (s *Server) review(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	limit = clampLimit(limit)

	if s.cfg.ReviewPath == "" {
		SuccessResponse(c, []json.RawMessage{})
		return
	}

	records, err := tailJSONLines(s.cfg.ReviewPath, limit)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	SuccessResponse(c, records)
}

// tailJSONLines returns the last n lines of a line-delimited JSON file, in
// file order, as raw JSON. A missing file is treated as empty, since no
// review entry has been written yet.
func tailJSONLines(path string, n int) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []json.RawMessage{}, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	out := make([]json.RawMessage, len(lines))
	for i, l := range lines {
		out[i] = json.RawMessage(l)
	}
	return out, nil
}

// decisionCounters tallies decisions by kind for GET /v1/stats.
type decisionCounters struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *decisionCounters) record(decision string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[string]int, 3)
	}
	c.counts[strings.ToLower(decision)]++
}

func (c *decisionCounters) snapshot() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}
