// Package domain – chatbot configuration and diagnostic records.
package domain

import (
	"time"
)

// Well-known settings keys. Settings are a process-wide key/value map; all
// runtime knobs that are not secrets live here and may be edited while the
// service runs.
const (
	SettingCompanyName     = "company_name"
	SettingCompanyPhone    = "company_phone"
	SettingCompanyAddress  = "company_address"
	SettingInstagram       = "instagram"
	SettingDeliveryURL     = "delivery_url"
	SettingBusinessHours   = "business_hours"
	SettingChatPersona     = "chat_persona"
	SettingBotPauseMinutes = "bot_pause_minutes"
	SettingHandoffMessage  = "handoff_message"
	SettingPauseMessage    = "bot_pause_message"
	SettingDefaultVoice    = "default_voice"
)

// Setting is one key/value configuration entry.
type Setting struct {
	Key       string    `json:"key"   gorm:"type:varchar(64);primaryKey"`
	Value     string    `json:"value" gorm:"type:text"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Setting.
func (Setting) TableName() string { return "settings" }

// MatchType selects how a keyword rule compares its keywords against
// inbound text.
type MatchType string

// Supported keyword match modes.
const (
	MatchContains   MatchType = "contains"
	MatchExact      MatchType = "exact"
	MatchStartsWith MatchType = "starts_with"
)

// Valid reports whether m is a known match mode.
func (m MatchType) Valid() bool {
	return m == MatchContains || m == MatchExact || m == MatchStartsWith
}

// KeywordRule is one deterministic auto-reply rule evaluated before the LLM
// fallback. Keywords is a JSON-encoded string array. Lower priority values
// are evaluated first.
type KeywordRule struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	Keywords  string    `json:"keywords"  gorm:"type:text;not null"`
	Response  string    `json:"response"  gorm:"type:text;not null"`
	Active    bool      `json:"active"    gorm:"not null;default:true;index"`
	Priority  int       `json:"priority"  gorm:"not null;default:100;index"`
	MatchType MatchType `json:"match_type" gorm:"type:varchar(16);not null;default:'contains'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for KeywordRule.
func (KeywordRule) TableName() string { return "keyword_rules" }

// BugReport statuses.
const (
	BugStatusNew           = "new"
	BugStatusInvestigating = "investigating"
	BugStatusFixed         = "fixed"
	BugStatusIgnored       = "ignored"
)

// BugReport is an append-only diagnostic record for external-dependency
// failures and background task errors. Reports survive restarts.
type BugReport struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	Timestamp time.Time `json:"timestamp" gorm:"index"`
	Kind      string    `json:"kind"      gorm:"type:varchar(64);index"`
	Message   string    `json:"message"   gorm:"type:text"`
	Endpoint  string    `json:"endpoint"  gorm:"type:varchar(255)"`
	User      string    `json:"user,omitempty" gorm:"type:varchar(64)"`
	Stack     string    `json:"stack"     gorm:"type:text"`
	Request   string    `json:"request,omitempty" gorm:"type:text"`
	Status    string    `json:"status"    gorm:"type:varchar(16);not null;default:'new'"`
}

// TableName returns the database table name for BugReport.
func (BugReport) TableName() string { return "bug_reports" }

// RequestLog is an append-only access log row, written asynchronously off
// the request path.
type RequestLog struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	Timestamp  time.Time `json:"timestamp"   gorm:"index"`
	Method     string    `json:"method"      gorm:"type:varchar(8)"`
	Path       string    `json:"path"        gorm:"type:varchar(255)"`
	Status     int       `json:"status"`
	DurationMS int64     `json:"duration_ms"`
	RemoteIP   string    `json:"remote_ip"   gorm:"type:varchar(64)"`
}

// TableName returns the database table name for RequestLog.
func (RequestLog) TableName() string { return "request_logs" }
