package domain

import "time"

// QuestionDuration is how long a question stays open after it is shown.
const QuestionDuration = 15 * time.Second

// Status is a game's lifecycle state.
type Status string

const (
	StatusJoining    Status = "joining"
	StatusInProgress Status = "in-progress"
	StatusFinished   Status = "finished"
)

// Choice is one option of a question.
type Choice struct {
	Text      string `json:"text" yaml:"text"`
	IsCorrect bool   `json:"is_correct" yaml:"correct"`
}

// Question models an MCQ question. Choices keep their stored order.
type Question struct {
	ID      string   `json:"id" yaml:"id"`
	Text    string   `json:"text" yaml:"text"`
	Choices []Choice `json:"choices" yaml:"choices"`
}

// Game is a single quiz session identified by its shareable code.
// CurrentQuestionID and QuestionStartedAt are set only while in progress.
type Game struct {
	Code              string     `json:"code"`
	Status            Status     `json:"status"`
	CurrentQuestionID string     `json:"current_question_id,omitempty"`
	QuestionStartedAt *time.Time `json:"question_started_at,omitempty"`
	HostToken         string     `json:"host_token"`
	CreatedAt         time.Time  `json:"created_at"`
}

// InProgress reports whether the game has a live question.
func (g Game) InProgress() bool {
	return g.Status == StatusInProgress
}

// Player is a participant of exactly one game.
type Player struct {
	ID           string  `json:"id"`
	GameCode     string  `json:"game_code"`
	Name         string  `json:"name"`
	SessionToken string  `json:"session_token"`
	Score        float64 `json:"score"`
}

// Answer records that a player responded to a question.
type Answer struct {
	GameCode    string    `json:"game_code"`
	PlayerID    string    `json:"player_id"`
	QuestionID  string    `json:"question_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// PlayerView is the public projection of a player.
type PlayerView struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// QuestionView is the public projection of the current question; it never
// carries correctness flags.
type QuestionView struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Choices  []string `json:"choices"`
	TimeLeft int      `json:"time_left"`
}

// RoundView is only present in snapshots of in-progress games.
type RoundView struct {
	Question          QuestionView `json:"question"`
	AnsweredPlayerIDs []string     `json:"answered_player_ids"`
}

// SessionView tells a client how its session relates to a game.
type SessionView struct {
	GameCode string `json:"game_code"`
	IsHost   bool   `json:"is_host"`
	PlayerID string `json:"player_id"`
}

// Snapshot is what polling clients receive.
type Snapshot struct {
	Status  Status       `json:"status"`
	Players []PlayerView `json:"players"`
	*RoundView
}
