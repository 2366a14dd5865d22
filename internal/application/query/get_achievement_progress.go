package query

import (
	"context"
	"errors"
	"time"

	"github.com/coursehub/course-tracker/internal/domain/achievement"
	"github.com/coursehub/course-tracker/internal/domain/shared"
	"github.com/coursehub/course-tracker/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ACHIEVEMENT PROGRESS QUERY
// The display view: every achievement with its progress, whether it has been
// recorded as earned, and the user's point total. Secret achievements keep
// their name hidden until they are earned.
// ══════════════════════════════════════════════════════════════════════════════

// GetAchievementProgressQuery contains the query parameters.
type GetAchievementProgressQuery struct {
	UserID string

	// OnlyAchieved drops entries that are neither achieved nor earned.
	OnlyAchieved bool

	// Category filters to one category when non-empty.
	Category achievement.Category
}

// Validate checks the query.
func (q GetAchievementProgressQuery) Validate() error {
	if q.UserID == "" {
		return shared.ErrInvalidUserID
	}
	if q.Category != "" && !q.Category.IsValid() {
		return shared.NewDomainError("achievement", "Query", shared.ErrInvalidInput, "unknown category "+string(q.Category))
	}
	return nil
}

// AchievementProgressItem is one row of the progress view.
type AchievementProgressItem struct {
	ID          achievement.ID       `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Category    achievement.Category `json:"category"`
	Icon        string               `json:"icon"`
	Rarity      achievement.Rarity   `json:"rarity"`
	Points      int                  `json:"points"`
	Progress    int                  `json:"progress"`
	Required    int                  `json:"required"`
	Achieved    bool                 `json:"achieved"`
	Earned      bool                 `json:"earned"`
	EarnedAt    *time.Time           `json:"earned_at,omitempty"`
	Secret      bool                 `json:"secret,omitempty"`
	Meme        bool                 `json:"meme,omitempty"`
}

// AchievementProgressDTO is the full view for one user.
type AchievementProgressDTO struct {
	UserID        string                    `json:"user_id"`
	Items         []AchievementProgressItem `json:"items"`
	TotalPoints   int                       `json:"total_points"`
	EarnedCount   int                       `json:"earned_count"`
	AchievedCount int                       `json:"achieved_count"`
	CatalogSize   int                       `json:"catalog_size"`
	EvaluatedAt   time.Time                 `json:"evaluated_at"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// GetAchievementProgressHandler handles GetAchievementProgressQuery.
type GetAchievementProgressHandler struct {
	progress *ProgressService
	earned   achievement.EarnedRepository
	clock    timeutil.Clock
}

// NewGetAchievementProgressHandler creates the handler.
func NewGetAchievementProgressHandler(
	progress *ProgressService,
	earned achievement.EarnedRepository,
	clock timeutil.Clock,
) *GetAchievementProgressHandler {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &GetAchievementProgressHandler{
		progress: progress,
		earned:   earned,
		clock:    clock,
	}
}

// Handle executes the query.
func (h *GetAchievementProgressHandler) Handle(ctx context.Context, q GetAchievementProgressQuery) (*AchievementProgressDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	earned, err := h.earned.GetEarnedAchievements(ctx, q.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrEarnedFetch) {
			return nil, err
		}
		return nil, shared.WrapError("achievement", "LoadEarned", shared.ErrEarnedFetch, "failed to load earned achievements", err)
	}

	results, err := h.progress.Evaluate(ctx, q.UserID)
	if err != nil {
		return nil, err
	}

	dto := &AchievementProgressDTO{
		UserID:      q.UserID,
		Items:       make([]AchievementProgressItem, 0, len(results)),
		TotalPoints: achievement.TotalPoints(earned),
		CatalogSize: len(results),
		EvaluatedAt: h.clock.Now(),
	}

	for _, r := range results {
		isEarned := earned.Has(r.Definition.ID)
		if isEarned {
			dto.EarnedCount++
		}
		if r.Achieved {
			dto.AchievedCount++
		}

		if q.Category != "" && r.Definition.Category != q.Category {
			continue
		}
		if q.OnlyAchieved && !r.Achieved && !isEarned {
			continue
		}

		dto.Items = append(dto.Items, toItem(r, earned))
	}

	return dto, nil
}

func toItem(r achievement.Progress, earned achievement.EarnedSet) AchievementProgressItem {
	at, isEarned := earned.EarnedAt(r.Definition.ID)
	def := r.Definition.Masked(r.Achieved || isEarned)

	item := AchievementProgressItem{
		ID:          def.ID,
		Name:        def.Name,
		Description: def.Description,
		Category:    def.Category,
		Icon:        def.Icon,
		Rarity:      def.Rarity,
		Points:      def.Points,
		Progress:    r.Progress,
		Required:    def.Threshold(),
		Achieved:    r.Achieved,
		Earned:      isEarned,
		Secret:      def.Secret,
		Meme:        def.Meme,
	}
	if isEarned && !at.IsZero() {
		t := at
		item.EarnedAt = &t
	}
	return item
}
