package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/coder/websocket"

	"github.com/nexuslearn/oracy/pkg/provider/voice"
)

const defaultRealtimeURL = "wss://api.openai.com/v1/realtime"

// ── Protocol message types (outgoing) ─────────────────────────────────────────

type sessionUpdateMessage struct {
	Type    string        `json:"type"`
	Session sessionParams `json:"session"`
}

type sessionParams struct {
	Modalities        []string `json:"modalities,omitempty"`
	Voice             string   `json:"voice,omitempty"`
	Instructions      string   `json:"instructions,omitempty"`
	InputAudioFormat  string   `json:"input_audio_format"`
	OutputAudioFormat string   `json:"output_audio_format"`
}

type appendAudioMessage struct {
	Type  string `json:"type"`
	Audio string `json:"audio"` // base64-encoded PCM16
}

// ── Protocol message types (incoming) ─────────────────────────────────────────

type serverEvent struct {
	Type  string `json:"type"`
	Delta string `json:"delta,omitempty"`
	Error *struct {
		Type    string `json:"type"`
		Code    string `json:"code,omitempty"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// StreamAudioResponse implements voice.Provider using the Realtime API.
// It opens a WebSocket for a single request/response exchange: configure the
// session, append the full input audio buffer, commit it, request a response,
// and forward decoded audio deltas until the response completes.
func (p *Provider) StreamAudioResponse(ctx context.Context, audio []byte, sctx voice.SessionContext) (<-chan []byte, error) {
	wsURL := fmt.Sprintf("%s?model=%s", p.realtimeURL, p.cfg.RealtimeModel)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{
			"Authorization": []string{"Bearer " + p.cfg.APIKey},
			"OpenAI-Beta":   []string{"realtime=v1"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai: realtime dial: %w", err)
	}

	writeJSON := func(v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("openai: realtime marshal: %w", err)
		}
		return conn.Write(ctx, websocket.MessageText, data)
	}

	setup := []any{
		sessionUpdateMessage{
			Type: "session.update",
			Session: sessionParams{
				Modalities:        []string{"audio", "text"},
				Voice:             p.cfg.Voice,
				Instructions:      voice.SystemPrompt(p.cfg, sctx),
				InputAudioFormat:  "pcm16",
				OutputAudioFormat: "pcm16",
			},
		},
		appendAudioMessage{
			Type:  "input_audio_buffer.append",
			Audio: base64.StdEncoding.EncodeToString(audio),
		},
		map[string]string{"type": "input_audio_buffer.commit"},
		map[string]string{"type": "response.create"},
	}
	for _, msg := range setup {
		if err := writeJSON(msg); err != nil {
			conn.Close(websocket.StatusInternalError, "setup failed")
			return nil, fmt.Errorf("openai: realtime setup: %w", err)
		}
	}

	out := make(chan []byte, 64)
	go func() {
		defer close(out)
		defer conn.Close(websocket.StatusNormalClosure, "response complete")

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}

			var evt serverEvent
			if err := json.Unmarshal(data, &evt); err != nil {
				continue
			}

			switch evt.Type {
			case "response.audio.delta":
				chunk, err := base64.StdEncoding.DecodeString(evt.Delta)
				if err != nil || len(chunk) == 0 {
					continue
				}
				select {
				case out <- chunk:
				case <-ctx.Done():
					return
				}

			case "response.audio.done", "response.done":
				return

			case "error":
				return
			}
		}
	}()
	return out, nil
}
