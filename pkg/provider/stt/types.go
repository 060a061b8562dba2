package stt

import "time"

// BitsPerSample is fixed at 16: all audio is signed little-endian PCM.
const BitsPerSample = 16

// Audio is a recorded utterance as raw 16-bit signed little-endian PCM.
type Audio struct {
	PCM        []byte
	SampleRate int
	Channels   int
}

// Duration returns the playback length of a.
func (a Audio) Duration() time.Duration {
	if a.SampleRate <= 0 || a.Channels <= 0 {
		return 0
	}
	bytesPerSec := a.SampleRate * a.Channels * (BitsPerSample / 8)
	return time.Duration(len(a.PCM)) * time.Second / time.Duration(bytesPerSec)
}
