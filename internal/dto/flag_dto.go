package dto

import "github.com/google/uuid"

// SubmitFlagRequest is the payload for a creation or edit proposal.
// FlagID present means "edit of that flag", absent means "new flag".
// Image may be a hosted URL or an inline data URI; inline payloads are
// uploaded to object storage before anything is persisted.
type SubmitFlagRequest struct {
	Name        string     `json:"name"`
	Image       string     `json:"image"`
	Link        string     `json:"link"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
	FlagID      *uuid.UUID `json:"flag_id"`
	Message     string     `json:"message"`
}

type ReportFlagRequest struct {
	FlagID uuid.UUID `json:"flag_id"`
	Reason string    `json:"reason"`
}

type ResolveReportRequest struct {
	Status    string `json:"status"`
	AdminNote string `json:"admin_note"`
}

type UpdateProfileRequest struct {
	Name        *string `json:"name"`
	IsAnonymous *bool   `json:"is_anonymous"`
}

// LeaderboardRow is a public leaderboard entry; anonymous users have
// their name and avatar suppressed.
type LeaderboardRow struct {
	Name       string `json:"name"`
	Image      string `json:"image"`
	UserNumber int64  `json:"user_number"`
	Count      int    `json:"count"`
	Anonymous  bool   `json:"anonymous"`
}
