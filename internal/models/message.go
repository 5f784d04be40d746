package models

import "time"

// HarassmentType is the machine key of a harassment category
type HarassmentType string

const (
	HateSpeech       HarassmentType = "hate_speech"
	Bullying         HarassmentType = "bullying"
	SexualHarassment HarassmentType = "sexual_harassment"
	Threats          HarassmentType = "threats"
	Discrimination   HarassmentType = "discrimination"
	ToxicLanguage    HarassmentType = "toxic"
)

// HarassmentTypes lists every category in display order
var HarassmentTypes = []HarassmentType{
	HateSpeech,
	Bullying,
	SexualHarassment,
	Threats,
	Discrimination,
	ToxicLanguage,
}

// CategoryNames maps category keys to the names used in analytics
var CategoryNames = map[HarassmentType]string{
	HateSpeech:       "Hate Speech",
	Bullying:         "Bullying",
	SexualHarassment: "Sexual Harassment",
	Threats:          "Threats/Violence",
	Discrimination:   "Discrimination",
	ToxicLanguage:    "Toxic Language",
}

// Valid reports whether t is one of the known categories
func (t HarassmentType) Valid() bool {
	_, ok := CategoryNames[t]
	return ok
}

// TimestampLayout is the fixed-width UTC layout used to persist timestamps.
// Lexical order of formatted values equals chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// FormatTimestamp renders t for storage
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp reads a stored timestamp back. RFC 3339 values written by
// other tools are accepted too.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// Message is a classified chat message
type Message struct {
	ID             string          `json:"id"`
	Content        string          `json:"content"`
	Timestamp      time.Time       `json:"timestamp"`
	IsFlagged      bool            `json:"is_flagged"`
	SafetyScore    float64         `json:"safety_score"`
	HarassmentType *HarassmentType `json:"harassment_type"`
	FlaggedReason  *string         `json:"flagged_reason"`
}

// Verdict is the outcome of classifying one message
type Verdict struct {
	IsFlagged      bool            `json:"is_flagged"`
	SafetyScore    float64         `json:"safety_score"`
	HarassmentType *HarassmentType `json:"harassment_type"`
	FlaggedReason  *string         `json:"flagged_reason"`
}

// SafeVerdict is used whenever classification cannot complete
func SafeVerdict() Verdict {
	return Verdict{
		IsFlagged:   false,
		SafetyScore: 1.0,
	}
}

// CreateMessageRequest is the body of POST /api/messages. Content must be
// present but may be empty.
type CreateMessageRequest struct {
	Content *string `json:"content" binding:"required"`
}

// Analytics summarises stored messages
type Analytics struct {
	TotalMessages         int64            `json:"total_messages"`
	FlaggedMessages       int64            `json:"flagged_messages"`
	SafetyPercentage      float64          `json:"safety_percentage"`
	HarassmentBreakdown   map[string]int64 `json:"harassment_breakdown"`
	RecentFlaggedMessages []*Message       `json:"recent_flagged_messages"`
}
