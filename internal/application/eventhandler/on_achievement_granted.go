// Package eventhandler contains reactions to domain events.
package eventhandler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/coursehub/course-tracker/internal/domain/achievement"
	"github.com/coursehub/course-tracker/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON ACHIEVEMENT GRANTED HANDLER
// Announces every newly granted achievement. Rare and better unlocks are
// highlighted; common ones are logged at debug level.
// ═══════════════════════════════════════════════════════════════════════════

// Announcement is what a Sink receives for one unlock.
type Announcement struct {
	UserID        string
	AchievementID achievement.ID
	Name          string
	Rarity        achievement.Rarity
	Points        int
	Highlight     bool
	Text          string
	At            time.Time
}

// Sink delivers announcements somewhere outside the process.
type Sink interface {
	Announce(ctx context.Context, a Announcement) error
}

// AchievementGrantedConfig contains the handler configuration.
type AchievementGrantedConfig struct {
	// HighlightRarities are announced at info level with Highlight set.
	HighlightRarities []achievement.Rarity

	// SinkTimeout bounds one Sink call.
	SinkTimeout time.Duration
}

// DefaultAchievementGrantedConfig returns the default configuration.
func DefaultAchievementGrantedConfig() AchievementGrantedConfig {
	return AchievementGrantedConfig{
		HighlightRarities: []achievement.Rarity{achievement.RarityRare, achievement.RarityEpic, achievement.RarityLegendary},
		SinkTimeout:       5 * time.Second,
	}
}

// OnAchievementGrantedHandler handles shared.EventAchievementGranted.
type OnAchievementGrantedHandler struct {
	sink   Sink
	logger *slog.Logger
	config AchievementGrantedConfig

	highlight map[achievement.Rarity]bool
	handled   atomic.Int64
}

// NewOnAchievementGrantedHandler creates the handler. sink may be nil.
func NewOnAchievementGrantedHandler(sink Sink, logger *slog.Logger, config AchievementGrantedConfig) *OnAchievementGrantedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	highlight := make(map[achievement.Rarity]bool, len(config.HighlightRarities))
	for _, r := range config.HighlightRarities {
		highlight[r] = true
	}
	return &OnAchievementGrantedHandler{
		sink:      sink,
		logger:    logger.With("handler", "on_achievement_granted"),
		config:    config,
		highlight: highlight,
	}
}

// Handle implements shared.EventHandler.
func (h *OnAchievementGrantedHandler) Handle(event shared.Event) error {
	granted, ok := event.(achievement.GrantedEvent)
	if !ok {
		h.logger.Warn("received non-GrantedEvent", "event_type", event.EventType())
		return nil
	}

	a := Announcement{
		UserID:        granted.AggregateID(),
		AchievementID: granted.AchievementID,
		Name:          granted.Name,
		Rarity:        granted.Rarity,
		Points:        granted.Points,
		Highlight:     h.highlight[granted.Rarity],
		Text:          FormatAnnouncement(granted),
		At:            granted.OccurredAt(),
	}
	h.handled.Add(1)

	level := slog.LevelDebug
	if a.Highlight {
		level = slog.LevelInfo
	}
	h.logger.Log(context.Background(), level, "achievement unlocked",
		"user_id", a.UserID,
		"achievement_id", string(a.AchievementID),
		"name", a.Name,
		"rarity", string(a.Rarity),
		"points", a.Points,
		"correlation_id", granted.CorrelationID,
	)

	if h.sink == nil {
		return nil
	}

	ctx := context.Background()
	if h.config.SinkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.SinkTimeout)
		defer cancel()
	}
	if err := h.sink.Announce(ctx, a); err != nil {
		h.logger.Error("failed to announce achievement",
			"user_id", a.UserID,
			"achievement_id", string(a.AchievementID),
			"error", err,
		)
		return fmt.Errorf("announce %s: %w", a.AchievementID, err)
	}
	return nil
}

// Handled returns the number of GrantedEvents seen.
func (h *OnAchievementGrantedHandler) Handled() int64 {
	return h.handled.Load()
}

// FormatAnnouncement renders the one-line unlock message.
func FormatAnnouncement(e achievement.GrantedEvent) string {
	text := fmt.Sprintf("Achievement unlocked: %s (+%d pts)", e.Name, e.Points)
	switch e.Rarity {
	case achievement.RarityEpic:
		return "✨ " + text
	case achievement.RarityLegendary:
		return "🌟 " + text + " Legendary!"
	default:
		return text
	}
}
