package models

// SessionSnapshot is the read-only view of a consultation returned to clients.
type SessionSnapshot struct {
	SessionID          string          `json:"session_id"`
	Locale             string          `json:"locale"`
	HasUserImage       bool            `json:"has_user_image"`
	HasNormalizedImage bool            `json:"has_normalized_image"`
	UserGender         Gender          `json:"user_gender"`
	PartnerGender      Gender          `json:"partner_gender"`
	IsAnalyzing        bool            `json:"is_analyzing"`
	IsProcessingUser   bool            `json:"is_processing_user"`
	Analysis           *OutfitAnalysis `json:"analysis"`
	GeneratedIndices   []int           `json:"generated_indices"`
	PendingIndices     []int           `json:"pending_indices"`
	FailedIndices      []int           `json:"failed_indices"`
	SelectedIndex      int             `json:"selected_index"`
	Error              *string         `json:"error"`
}

type GenderSelectionIn struct {
	UserGender    string `json:"user_gender" validate:"required,gender"`
	PartnerGender string `json:"partner_gender" validate:"required,gender"`
}

type SuggestionSelectionIn struct {
	Index *int `json:"index" validate:"required,min=0"`
}

type SessionCreatedOut struct {
	Token   string          `json:"token"`
	Session SessionSnapshot `json:"session"`
}
