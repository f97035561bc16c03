package rankstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// activeTagsCap bounds the active-tags set to its most recently touched
// entries, mirroring the bounded-recency shape used elsewhere in this store.
const activeTagsCap = 20

// StatusSnapshot is the read-only per-project activity summary behind
// GET /status: a rolling view of what Intent Capture has been doing,
// derived from state it already writes rather than a new write path.
type StatusSnapshot struct {
	IntentsSeen int
	ActiveTags  []string
	LastTool    string
	LastFiles   []string
	UpdatedAt   time.Time
}

// RecordStatus increments the project's intents-seen counter, records the
// triggering tool and files, and bumps every given tag's recency in the
// active-tags set. Called by Intent Capture alongside RecordAccess.
func (s *Store) RecordStatus(ctx context.Context, project, tool string, files, tags []string, now time.Time) error {
	if _, err := s.hash.HIncrBy(ctx, statusKey(project), "intents_seen", 1); err != nil {
		return fmt.Errorf("rankstore: record_status intents_seen: %w", err)
	}
	fields := map[string]string{
		"last_tool":  tool,
		"last_files": strings.Join(files, "\x1f"),
		"updated_at": strconv.FormatInt(now.Unix(), 10),
	}
	if err := s.hash.HSet(ctx, statusKey(project), fields); err != nil {
		return fmt.Errorf("rankstore: record_status: %w", err)
	}
	for _, tag := range tags {
		if err := s.db.ZAdd(ctx, statusTagsKey(project), float64(now.Unix()), tag); err != nil {
			return fmt.Errorf("rankstore: record_status tag %s: %w", tag, err)
		}
	}
	if err := s.db.ZRemRangeByRankAsc(ctx, statusTagsKey(project), activeTagsCap); err != nil {
		return fmt.Errorf("rankstore: record_status tags cap: %w", err)
	}
	return nil
}

// Status returns the project's current status snapshot.
func (s *Store) Status(ctx context.Context, project string) (StatusSnapshot, error) {
	fields, err := s.hash.HGetAll(ctx, statusKey(project))
	if err != nil {
		return StatusSnapshot{}, fmt.Errorf("rankstore: status: %w", err)
	}
	seen, _ := strconv.Atoi(fields["intents_seen"])
	updatedEpoch, _ := strconv.ParseInt(fields["updated_at"], 10, 64)

	tagMembers, err := s.db.ZRevRangeWithScores(ctx, statusTagsKey(project), activeTagsCap)
	if err != nil {
		return StatusSnapshot{}, fmt.Errorf("rankstore: status tags: %w", err)
	}
	tags := make([]string, 0, len(tagMembers))
	for _, m := range tagMembers {
		tags = append(tags, m.Member)
	}

	var lastFiles []string
	if raw := fields["last_files"]; raw != "" {
		lastFiles = strings.Split(raw, "\x1f")
	}

	var updatedAt time.Time
	if updatedEpoch > 0 {
		updatedAt = time.Unix(updatedEpoch, 0)
	}

	return StatusSnapshot{
		IntentsSeen: seen,
		ActiveTags:  tags,
		LastTool:    fields["last_tool"],
		LastFiles:   lastFiles,
		UpdatedAt:   updatedAt,
	}, nil
}
