package achievement

import (
	"time"

	"github.com/coursehub/course-tracker/internal/domain/shared"
)

// GrantedEvent is published once per newly persisted achievement.
type GrantedEvent struct {
	shared.BaseEvent
	AchievementID ID       `json:"achievement_id"`
	Name          string   `json:"name"`
	Category      Category `json:"category"`
	Rarity        Rarity   `json:"rarity"`
	Points        int      `json:"points"`
	Secret        bool     `json:"secret"`
}

// Payload implements shared.Event.
func (e GrantedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"achievement_id": string(e.AchievementID),
		"name":           e.Name,
		"category":       string(e.Category),
		"rarity":         string(e.Rarity),
		"points":         e.Points,
		"secret":         e.Secret,
	}
}

// NewGrantedEvent creates a GrantedEvent for userID.
func NewGrantedEvent(userID string, def Definition, at time.Time) GrantedEvent {
	return GrantedEvent{
		BaseEvent:     shared.NewBaseEvent(shared.EventAchievementGranted, userID, at),
		AchievementID: def.ID,
		Name:          def.Name,
		Category:      def.Category,
		Rarity:        def.Rarity,
		Points:        def.Points,
		Secret:        def.Secret,
	}
}
