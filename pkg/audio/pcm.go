// Package audio provides PCM16 helpers for the voice pipeline: linear
// resampling for clients capturing at non-native rates, WAV container
// wrapping for upload to transcription APIs, and duration math.
//
// All functions operate on little-endian 16-bit mono PCM unless stated
// otherwise.
package audio

import "time"

// SessionSampleRate is the sample rate of audio flowing through a tutoring
// session: PCM16 mono at 24kHz.
const SessionSampleRate = 24000

// BytesPerSecond is the byte rate of session audio (2 bytes per sample).
const BytesPerSecond = SessionSampleRate * 2

// Duration returns the playback duration of n bytes of session-format PCM.
func Duration(n int) time.Duration {
	return time.Duration(n) * time.Second / BytesPerSecond
}

// ResampleMono16 resamples 16-bit mono PCM from srcRate to dstRate using
// linear interpolation. The input must be little-endian int16 samples. If
// srcRate == dstRate, the input is returned unchanged.
func ResampleMono16(pcm []byte, srcRate, dstRate int) []byte {
	if srcRate <= 0 || dstRate <= 0 {
		return pcm
	}
	if srcRate == dstRate || len(pcm) < 2 {
		return pcm
	}
	srcSamples := len(pcm) / 2
	dstSamples := int(int64(srcSamples) * int64(dstRate) / int64(srcRate))
	if dstSamples == 0 {
		return nil
	}

	out := make([]byte, dstSamples*2)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range dstSamples {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := int16(pcm[srcIdx*2]) | int16(pcm[srcIdx*2+1])<<8
		var s1 int16
		if srcIdx+1 < srcSamples {
			s1 = int16(pcm[(srcIdx+1)*2]) | int16(pcm[(srcIdx+1)*2+1])<<8
		} else {
			s1 = s0
		}

		interpolated := int16(float64(s0)*(1-frac) + float64(s1)*frac)
		out[i*2] = byte(interpolated)
		out[i*2+1] = byte(interpolated >> 8)
	}
	return out
}
