// Package transport drives one WebSocket connection per tutoring session.
//
// The handler decodes client frames, dispatches them to the session
// manager, and writes responses and AI speech back. Frame-level failures
// (bad JSON, invalid base64, unknown types) produce an error frame and the
// loop continues; only transport-level failures end the loop. A loop exit
// without an explicit session_end parks the session for recovery instead
// of finalizing it.
package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"

	"github.com/coder/websocket"

	"github.com/nexuslearn/oracy/internal/session"
	"github.com/nexuslearn/oracy/pkg/audio"
)

// maxFrameBytes is the largest inbound frame accepted, roughly 20 seconds
// of session-rate PCM.
const maxFrameBytes = 1 << 20

// Handler serves the tutoring WebSocket endpoint.
type Handler struct {
	manager *session.Manager
	log     *slog.Logger
}

// NewHandler returns a Handler dispatching to manager.
func NewHandler(manager *session.Manager, log *slog.Logger) (*Handler, error) {
	if manager == nil {
		return nil, errors.New("transport: manager must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{manager: manager, log: log}, nil
}

// Register adds the WebSocket route to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/oracy/{student_code}", h.Serve)
}

// Serve upgrades the connection and runs the session loop. The session is
// created (or recovered) immediately so the client gets its session_ready
// frame without a handshake round trip.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	studentCode := r.PathValue("student_code")
	if studentCode == "" {
		http.Error(w, "student code required", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn("websocket accept failed", "student_code", studentCode, "error", err)
		return
	}
	defer conn.CloseNow()
	// Clients may batch several seconds of PCM into one frame.
	conn.SetReadLimit(maxFrameBytes)

	ctx := r.Context()

	sess, err := h.manager.CreateSession(ctx, studentCode, session.StartOptions{})
	if err != nil {
		h.log.Warn("session create failed", "student_code", studentCode, "error", err)
		_ = h.writeFrame(ctx, conn, TypeError, errorData{Message: err.Error()})
		conn.Close(websocket.StatusPolicyViolation, "session rejected")
		return
	}

	if err := h.writeFrame(ctx, conn, TypeSessionReady, sessionReadyData{
		SessionID:   sess.ID,
		StudentCode: sess.StudentCode,
	}); err != nil {
		h.manager.DisconnectSession(sess.ID)
		return
	}

	st := &connState{sampleRate: audio.SessionSampleRate}
	ended := h.loop(ctx, conn, sess, st)

	if !ended {
		h.manager.DisconnectSession(sess.ID)
		return
	}

	summary, err := h.manager.EndSession(ctx, sess.ID)
	if err != nil {
		h.log.Warn("session end failed", "session_id", sess.ID, "error", err)
		return
	}
	// Best-effort: the socket may already be gone.
	_ = h.writeFrame(ctx, conn, TypeSessionEnded, sessionEndedData{
		SessionID:       summary.SessionID,
		DurationSeconds: round2(summary.DurationSeconds),
		TurnCount:       summary.TurnCount,
	})
	conn.Close(websocket.StatusNormalClosure, "session ended")
}

// connState holds per-connection settings negotiated by session_start.
type connState struct {
	sampleRate int
}

// loop runs the receive loop until session_end (returns true) or a
// transport failure (returns false).
func (h *Handler) loop(ctx context.Context, conn *websocket.Conn, sess *session.Session, st *connState) bool {
	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			h.log.Info("connection closed", "session_id", sess.ID, "error", err)
			return false
		}

		if msgType == websocket.MessageBinary {
			if err := h.handleAudio(ctx, conn, sess, st, data); err != nil {
				return false
			}
			continue
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			if err := h.writeFrame(ctx, conn, TypeError, errorData{
				Message: "malformed message: " + err.Error(),
			}); err != nil {
				return false
			}
			continue
		}

		switch frame.Type {
		case TypeSessionStart:
			if err := h.handleSessionStart(ctx, conn, sess, st, frame.Data); err != nil {
				return false
			}

		case TypeAudioChunk:
			var chunk audioChunkData
			pcm, err := decodeAudioChunk(frame.Data, &chunk)
			if err != nil {
				if werr := h.writeFrame(ctx, conn, TypeError, errorData{
					Message: "invalid audio chunk: " + err.Error(),
				}); werr != nil {
					return false
				}
				continue
			}
			if err := h.handleAudio(ctx, conn, sess, st, pcm); err != nil {
				return false
			}

		case TypeUserMessage:
			if err := h.handleUserMessage(ctx, conn, sess, frame.Data); err != nil {
				return false
			}

		case TypeSessionEnd:
			return true

		default:
			if err := h.writeFrame(ctx, conn, TypeError, errorData{
				Message: fmt.Sprintf("unknown message type %q", frame.Type),
			}); err != nil {
				return false
			}
		}
	}
}

// handleSessionStart applies connection settings and re-acknowledges the
// session. Creation already happened on connect, so this is idempotent.
func (h *Handler) handleSessionStart(ctx context.Context, conn *websocket.Conn, sess *session.Session, st *connState, raw json.RawMessage) error {
	var data sessionStartData
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return h.writeFrame(ctx, conn, TypeError, errorData{
				Message: "invalid session_start: " + err.Error(),
			})
		}
	}
	if data.SampleRate > 0 {
		st.sampleRate = data.SampleRate
	}
	sess.ApplyHints(data.Grade, data.PrimaryLanguage, data.CurriculumFocus)
	return h.writeFrame(ctx, conn, TypeSessionReady, sessionReadyData{
		SessionID:   sess.ID,
		StudentCode: sess.StudentCode,
	})
}

// handleAudio buffers one audio frame and runs a turn once the buffer
// crosses the processing threshold.
func (h *Handler) handleAudio(ctx context.Context, conn *websocket.Conn, sess *session.Session, st *connState, pcm []byte) error {
	if st.sampleRate != audio.SessionSampleRate {
		pcm = audio.ResampleMono16(pcm, st.sampleRate, audio.SessionSampleRate)
	}

	_, ready, err := h.manager.AppendAudio(ctx, sess.ID, pcm)
	if err != nil {
		return h.writeFrame(ctx, conn, TypeError, errorData{Message: err.Error()})
	}
	if !ready {
		return nil
	}
	return h.manager.ProcessAudioAndRespond(ctx, sess.ID, &wsSink{ctx: ctx, conn: conn})
}

// handleUserMessage runs the text path: one ai_text frame and one
// latency_update frame per message.
func (h *Handler) handleUserMessage(ctx context.Context, conn *websocket.Conn, sess *session.Session, raw json.RawMessage) error {
	var data userMessageData
	if err := json.Unmarshal(raw, &data); err != nil {
		return h.writeFrame(ctx, conn, TypeError, errorData{
			Message: "invalid user_message: " + err.Error(),
		})
	}

	text, latencyMS := h.manager.GetAIResponse(ctx, sess.ID, data.Text)
	if err := h.writeFrame(ctx, conn, TypeAIText, aiTextData{Text: text}); err != nil {
		return err
	}
	return h.writeFrame(ctx, conn, TypeLatencyUpdate, latencyUpdateData{
		LatencyMS: round2(latencyMS),
	})
}

func (h *Handler) writeFrame(ctx context.Context, conn *websocket.Conn, frameType string, data any) error {
	return writeFrame(ctx, conn, frameType, data)
}

// decodeAudioChunk extracts and base64-decodes an audio_chunk payload.
func decodeAudioChunk(raw json.RawMessage, chunk *audioChunkData) ([]byte, error) {
	if err := json.Unmarshal(raw, chunk); err != nil {
		return nil, err
	}
	pcm, err := base64.StdEncoding.DecodeString(chunk.Audio)
	if err != nil {
		return nil, err
	}
	return pcm, nil
}

// wsSink streams turn output back over the connection. It implements
// session.ResponseSink.
type wsSink struct {
	ctx  context.Context
	conn *websocket.Conn
}

func (s *wsSink) SendTranscript(text string) error {
	return writeFrame(s.ctx, s.conn, TypeTranscript, transcriptData{Text: text})
}

func (s *wsSink) SendAIText(text string) error {
	return writeFrame(s.ctx, s.conn, TypeAIText, aiTextData{Text: text})
}

func (s *wsSink) SendLatency(latencyMS float64) error {
	return writeFrame(s.ctx, s.conn, TypeLatencyUpdate, latencyUpdateData{LatencyMS: round2(latencyMS)})
}

func (s *wsSink) SendAudio(chunk []byte) error {
	return s.conn.Write(s.ctx, websocket.MessageBinary, chunk)
}

func writeFrame(ctx context.Context, conn *websocket.Conn, frameType string, data any) error {
	payload, err := json.Marshal(serverFrame{Type: frameType, Data: data})
	if err != nil {
		return fmt.Errorf("transport: marshal %s frame: %w", frameType, err)
	}
	return conn.Write(ctx, websocket.MessageText, payload)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

var _ session.ResponseSink = (*wsSink)(nil)
