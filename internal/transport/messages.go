package transport

import "encoding/json"

// Client frame types. Raw binary frames are treated as an implicit
// audio_chunk carrying PCM16 audio.
const (
	TypeSessionStart = "session_start"
	TypeAudioChunk   = "audio_chunk"
	TypeUserMessage  = "user_message"
	TypeSessionEnd   = "session_end"
)

// Server frame types. AI speech goes out as raw binary frames.
const (
	TypeSessionReady  = "session_ready"
	TypeTranscript    = "transcript"
	TypeAIText        = "ai_text"
	TypeLatencyUpdate = "latency_update"
	TypeError         = "error"
	TypeSessionEnded  = "session_ended"
)

// clientFrame is the envelope for structured client messages.
type clientFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// sessionStartData carries optional session hints. SampleRate declares the
// client's capture rate; audio is resampled to the session rate when it
// differs.
type sessionStartData struct {
	Grade           int    `json:"grade,omitempty"`
	PrimaryLanguage string `json:"primary_language,omitempty"`
	CurriculumFocus string `json:"curriculum_focus,omitempty"`
	SampleRate      int    `json:"sample_rate,omitempty"`
}

// audioChunkData carries base64-encoded PCM16 audio.
type audioChunkData struct {
	Audio string `json:"audio"`
}

// userMessageData carries a typed (text path) student message.
type userMessageData struct {
	Text string `json:"text"`
}

// serverFrame is the envelope for structured server messages.
type serverFrame struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type sessionReadyData struct {
	SessionID   string `json:"session_id"`
	StudentCode string `json:"student_code"`
}

type transcriptData struct {
	Text string `json:"text"`
}

type aiTextData struct {
	Text string `json:"text"`
}

type latencyUpdateData struct {
	// LatencyMS is rounded to two decimals before sending.
	LatencyMS float64 `json:"latency_ms"`
}

type errorData struct {
	Message string `json:"message"`
}

type sessionEndedData struct {
	SessionID       string  `json:"session_id"`
	DurationSeconds float64 `json:"duration_seconds"`
	TurnCount       int     `json:"turn_count"`
}
