package achievement

import (
	"fmt"
)

// ID is the stable identifier of an achievement definition.
type ID string

// String implements fmt.Stringer.
func (id ID) String() string {
	return string(id)
}

// Category groups achievements for display.
type Category string

const (
	CategoryInjection Category = "injection"
	CategoryLabs      Category = "labs"
	CategoryCourse    Category = "course"
	CategoryMeme      Category = "meme"
	CategoryProfile   Category = "profile"
	CategoryStreak    Category = "streak"
	CategoryMilestone Category = "milestone"
)

// IsValid reports whether the category is known.
func (c Category) IsValid() bool {
	switch c {
	case CategoryInjection, CategoryLabs, CategoryCourse, CategoryMeme,
		CategoryProfile, CategoryStreak, CategoryMilestone:
		return true
	default:
		return false
	}
}

// Rarity describes how hard an achievement is to get.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// IsValid reports whether the rarity is known.
func (r Rarity) IsValid() bool {
	switch r {
	case RarityCommon, RarityRare, RarityEpic, RarityLegendary:
		return true
	default:
		return false
	}
}

// hiddenText replaces the name and description of a secret achievement
// until it is earned.
const hiddenText = "???"

// Definition describes one unlockable achievement.
type Definition struct {
	ID          ID       `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Icon        string   `json:"icon"`
	Rarity      Rarity   `json:"rarity"`
	Points      int      `json:"points"`

	// Required is the numeric threshold. Zero means a binary achievement.
	Required int `json:"required,omitempty"`

	Secret bool `json:"secret,omitempty"`
	Meme   bool `json:"meme,omitempty"`
}

// IsBinary reports whether the achievement has no numeric threshold.
func (d Definition) IsBinary() bool {
	return d.Required == 0
}

// Threshold returns the progress value at which the achievement is achieved.
func (d Definition) Threshold() int {
	if d.IsBinary() {
		return 1
	}
	return d.Required
}

// Masked returns a copy with name and description hidden for secret
// achievements that are not revealed yet. A secret is revealed once it is
// achieved or earned.
func (d Definition) Masked(revealed bool) Definition {
	if d.Secret && !revealed {
		d.Name = hiddenText
		d.Description = hiddenText
	}
	return d
}

// Validate checks the static invariants of a definition.
func (d Definition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("achievement definition has empty id")
	}
	if !d.Category.IsValid() {
		return fmt.Errorf("achievement %s: unknown category %q", d.ID, d.Category)
	}
	if !d.Rarity.IsValid() {
		return fmt.Errorf("achievement %s: unknown rarity %q", d.ID, d.Rarity)
	}
	if d.Points <= 0 {
		return fmt.Errorf("achievement %s: points must be positive, got %d", d.ID, d.Points)
	}
	if d.Required < 0 {
		return fmt.Errorf("achievement %s: required must be positive, got %d", d.ID, d.Required)
	}
	return nil
}
