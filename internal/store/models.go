package store

import "time"

// Event categories.
const (
	CategoryRunning  = "running"
	CategoryPersonal = "personal"
	CategoryAll      = "all"
)

// DefaultConversationTitle is used when a conversation is created untitled.
const DefaultConversationTitle = "Nueva conversación"

// CoachNotesSeparator separates appended coach notes.
const CoachNotesSeparator = "\n\n---\n\n"

// Profile is the singleton runner profile. Nil pointers are unset fields.
type Profile struct {
	Name              *string        `json:"name"`
	Age               *float64       `json:"age"`
	Weight            *float64       `json:"weight"`
	Height            *float64       `json:"height"`
	YearsRunning      *float64       `json:"yearsRunning"`
	WeeklyKm          *float64       `json:"weeklyKm"`
	PB5k              *string        `json:"pb5k"`
	PB10k             *string        `json:"pb10k"`
	PBHalfMarathon    *string        `json:"pbHalfMarathon"`
	PBMarathon        *string        `json:"pbMarathon"`
	CurrentGoal       *string        `json:"currentGoal"`
	TargetRace        *string        `json:"targetRace"`
	TargetDate        *string        `json:"targetDate"`
	TargetTime        *string        `json:"targetTime"`
	Injuries          *string        `json:"injuries"`
	HealthNotes       *string        `json:"healthNotes"`
	PreferredTerrain  *string        `json:"preferredTerrain"`
	AvailableDays     *string        `json:"availableDays"`
	MaxTimePerSession *float64       `json:"maxTimePerSession"`
	CoachNotes        *string        `json:"coachNotes"`
	AdditionalInfo    map[string]any `json:"additionalInfo"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// StringFields lists the profile's free-text fields by JSON name.
var StringFields = []string{
	"name", "pb5k", "pb10k", "pbHalfMarathon", "pbMarathon",
	"currentGoal", "targetRace", "targetDate", "targetTime", "injuries", "healthNotes",
	"preferredTerrain", "availableDays", "coachNotes",
}

// NumberFields lists the profile's numeric fields by JSON name.
var NumberFields = []string{"age", "weight", "height", "yearsRunning", "weeklyKm", "maxTimePerSession"}

// StringField returns the storage slot for a free-text field, or nil.
func (p *Profile) StringField(name string) **string {
	switch name {
	case "name":
		return &p.Name
	case "pb5k":
		return &p.PB5k
	case "pb10k":
		return &p.PB10k
	case "pbHalfMarathon":
		return &p.PBHalfMarathon
	case "pbMarathon":
		return &p.PBMarathon
	case "currentGoal":
		return &p.CurrentGoal
	case "targetRace":
		return &p.TargetRace
	case "targetDate":
		return &p.TargetDate
	case "targetTime":
		return &p.TargetTime
	case "injuries":
		return &p.Injuries
	case "healthNotes":
		return &p.HealthNotes
	case "preferredTerrain":
		return &p.PreferredTerrain
	case "availableDays":
		return &p.AvailableDays
	case "coachNotes":
		return &p.CoachNotes
	}
	return nil
}

// NumberField returns the storage slot for a numeric field, or nil.
func (p *Profile) NumberField(name string) **float64 {
	switch name {
	case "age":
		return &p.Age
	case "weight":
		return &p.Weight
	case "height":
		return &p.Height
	case "yearsRunning":
		return &p.YearsRunning
	case "weeklyKm":
		return &p.WeeklyKm
	case "maxTimePerSession":
		return &p.MaxTimePerSession
	}
	return nil
}

// ProfileUpdate is a partial profile write.
//
// Strings and Numbers overwrite the named fields; a nil value clears the
// field. MergeInfo is shallow-merged into AdditionalInfo (new keys win,
// untouched keys survive). ReplaceInfo, when set, replaces AdditionalInfo
// before the merge.
type ProfileUpdate struct {
	Strings     map[string]*string
	Numbers     map[string]*float64
	MergeInfo   map[string]any
	ReplaceInfo map[string]any
}

// Empty reports whether the update would change nothing.
func (u ProfileUpdate) Empty() bool {
	return len(u.Strings) == 0 && len(u.Numbers) == 0 && len(u.MergeInfo) == 0 && u.ReplaceInfo == nil
}

// FieldNames returns the JSON names touched by the update.
func (u ProfileUpdate) FieldNames() []string {
	var names []string
	for _, name := range StringFields {
		if _, ok := u.Strings[name]; ok {
			names = append(names, name)
		}
	}
	for _, name := range NumberFields {
		if _, ok := u.Numbers[name]; ok {
			names = append(names, name)
		}
	}
	if len(u.MergeInfo) > 0 || u.ReplaceInfo != nil {
		names = append(names, "additionalInfo")
	}
	return names
}

// Apply writes the update onto p.
func (u ProfileUpdate) Apply(p *Profile) {
	for name, v := range u.Strings {
		if slot := p.StringField(name); slot != nil {
			*slot = v
		}
	}
	for name, v := range u.Numbers {
		if slot := p.NumberField(name); slot != nil {
			*slot = v
		}
	}
	if u.ReplaceInfo != nil {
		p.AdditionalInfo = make(map[string]any, len(u.ReplaceInfo))
		for k, v := range u.ReplaceInfo {
			p.AdditionalInfo[k] = v
		}
	}
	if len(u.MergeInfo) > 0 {
		merged := make(map[string]any, len(p.AdditionalInfo)+len(u.MergeInfo))
		for k, v := range p.AdditionalInfo {
			merged[k] = v
		}
		for k, v := range u.MergeInfo {
			merged[k] = v
		}
		p.AdditionalInfo = merged
	}
}

// Event is a calendar entry: a run, a race or a personal appointment.
type Event struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"`
	Category  string    `json:"category"`
	Type      string    `json:"type"`
	Title     *string   `json:"title"`
	Time      *string   `json:"time"`
	Distance  *string   `json:"distance"`
	Duration  *string   `json:"duration"`
	Pace      *string   `json:"pace"`
	Notes     *string   `json:"notes"`
	HeartRate *int      `json:"heartRate"`
	Feeling   *string   `json:"feeling"`
	Completed int       `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EventQuery selects events by inclusive date range. Empty bounds are open.
// A zero Limit means unlimited. An empty or "all" Category matches every
// event.
type EventQuery struct {
	StartDate string
	EndDate   string
	Category  string
	Limit     int
}

// Conversation is a stored chat thread.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message is one stored chat message.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

// GeneratedImage is a saved image-generation result. ImageURL may be a
// remote URL or a data URL.
type GeneratedImage struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Model     string    `json:"model"`
	ImageURL  string    `json:"imageUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

// VisionAnalysis is a saved image analysis.
type VisionAnalysis struct {
	ID        string    `json:"id"`
	ImageURL  string    `json:"imageUrl"`
	Prompt    *string   `json:"prompt"`
	Model     string    `json:"model"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"createdAt"`
}
