package models

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// NoImage is stored in imageURL when an achievement has no image yet.
const NoImage = "NO_IMAGE"

// AccountType distinguishes artists, who only supply images, from regular accounts.
type AccountType string

const (
	AccountArtist AccountType = "artist"
	AccountAdmin  AccountType = "admin"
)

// Model is implemented by every stored entity.
type Model interface {
	Validate() error // Validate checks if the model's data is valid and returns an error if not
}

// AchievementKey is the composite primary key of an [Achievement].
type AchievementKey struct {
	Title    string `dynamodbav:"title" json:"title"`
	Category string `dynamodbav:"category" json:"category"`
}

func (k AchievementKey) String() string {
	return k.Category + "/" + k.Title
}

// ImageName is the file name used when uploading an image for this achievement.
func (k AchievementKey) ImageName() string {
	return k.Category + "_" + k.Title
}

// Achievement is a trackable goal with current/max progress, optionally illustrated by an image.
type Achievement struct {
	Title       string `dynamodbav:"title" json:"title"`
	Category    string `dynamodbav:"category" json:"category"`
	Description string `dynamodbav:"description" json:"description"`
	MaxProg     int    `dynamodbav:"maxProg" json:"maxProg"`
	CurrentProg int    `dynamodbav:"currentProg" json:"currentProg"`
	ImageURL    string `dynamodbav:"imageURL" json:"imageURL"`
}

// NewAchievement returns an achievement with no progress and no image.
func NewAchievement(title, category, description string, maxProg int) *Achievement {
	return &Achievement{
		Title:       strings.TrimSpace(title),
		Category:    strings.TrimSpace(category),
		Description: description,
		MaxProg:     maxProg,
		ImageURL:    NoImage,
	}
}

func (a *Achievement) Key() AchievementKey {
	return AchievementKey{Title: a.Title, Category: a.Category}
}

// HasImage reports whether an image has been attached.
func (a *Achievement) HasImage() bool {
	return a.ImageURL != "" && a.ImageURL != NoImage
}

// Complete reports whether progress has reached the maximum. The locked image is shown until then.
func (a *Achievement) Complete() bool {
	return a.CurrentProg >= a.MaxProg
}

// Fraction returns current/max, or 0 when max is 0.
func (a *Achievement) Fraction() float64 {
	if a.MaxProg <= 0 {
		return 0
	}
	return float64(a.CurrentProg) / float64(a.MaxProg)
}

func (a *Achievement) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if strings.TrimSpace(a.Category) == "" {
		return fmt.Errorf("category is required")
	}
	if a.MaxProg < 1 {
		return fmt.Errorf("max progress must be at least 1")
	}
	if a.CurrentProg < 0 || a.CurrentProg > a.MaxProg {
		return fmt.Errorf("current progress %d outside 0..%d", a.CurrentProg, a.MaxProg)
	}
	return nil
}

// Account is a remote user. Password holds the base64 KMS ciphertext.
type Account struct {
	Username string      `dynamodbav:"username" json:"username"`
	Email    string      `dynamodbav:"email" json:"email"`
	Password string      `dynamodbav:"password" json:"-"`
	Type     AccountType `dynamodbav:"type" json:"type"`
}

func (a *Account) Validate() error {
	if strings.TrimSpace(a.Username) == "" {
		return fmt.Errorf("username is required")
	}
	if a.Password == "" {
		return fmt.Errorf("password is required")
	}
	if a.Email != "" && !strings.Contains(a.Email, "@") {
		return fmt.Errorf("invalid email address: %s", a.Email)
	}
	return nil
}

func (a *Account) IsArtist() bool {
	return a.Type == AccountArtist
}

// Session is the login state of the running program.
type Session struct {
	LoggedIn    bool        `json:"loggedIn"`
	Username    string      `json:"username,omitempty"`
	AccountType AccountType `json:"accountType,omitempty"`
}

func (s Session) IsArtist() bool {
	return s.LoggedIn && s.AccountType == AccountArtist
}

// CategoryProgress is the aggregate completion of one category.
type CategoryProgress struct {
	Category string  `json:"category"`
	Current  int     `json:"current"`
	Max      int     `json:"max"`
	Fraction float64 `json:"fraction"`
}

// Percent returns the fraction as a whole-number percentage.
func (c CategoryProgress) Percent() int {
	return Percent(c.Fraction)
}

// Percent rounds a completion fraction to the nearest whole percent.
func Percent(fraction float64) int {
	return int(math.Round(fraction * 100))
}

// Completion sums current and max progress per category and returns one entry per category sorted by name.
//
// A category whose max progress sums to 0 reports a fraction of 0.
func Completion(achievements []Achievement) []CategoryProgress {
	current := make(map[string]int)
	maximum := make(map[string]int)

	for _, a := range achievements {
		current[a.Category] += a.CurrentProg
		maximum[a.Category] += a.MaxProg
	}

	result := make([]CategoryProgress, 0, len(maximum))
	for category, total := range maximum {
		p := CategoryProgress{Category: category, Current: current[category], Max: total}
		if total > 0 {
			p.Fraction = float64(p.Current) / float64(total)
		}
		result = append(result, p)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Category < result[j].Category
	})
	return result
}

// SortAchievements orders achievements by category then title.
func SortAchievements(achievements []Achievement) {
	sort.Slice(achievements, func(i, j int) bool {
		if achievements[i].Category != achievements[j].Category {
			return achievements[i].Category < achievements[j].Category
		}
		return achievements[i].Title < achievements[j].Title
	})
}

// SortKeys orders keys by category then title.
func SortKeys(keys []AchievementKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Category != keys[j].Category {
			return keys[i].Category < keys[j].Category
		}
		return keys[i].Title < keys[j].Title
	})
}
