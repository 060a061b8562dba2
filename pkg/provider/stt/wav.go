package stt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// EncodeWAV wraps a's PCM data in a RIFF/WAV container.
func EncodeWAV(a Audio) []byte {
	byteRate := a.SampleRate * a.Channels * BitsPerSample / 8
	blockAlign := a.Channels * BitsPerSample / 8
	dataSize := len(a.PCM)

	buf := make([]byte, 44+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(a.Channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(a.SampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], BitsPerSample)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[44:], a.PCM)

	return buf
}

// DecodeWAV reads a 16-bit PCM WAV stream. Chunks other than "fmt " and
// "data" are skipped.
func DecodeWAV(r io.Reader) (Audio, error) {
	var hdr [12]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Audio{}, fmt.Errorf("stt: read wav header: %w", err)
	}
	if string(hdr[0:4]) != "RIFF" || string(hdr[8:12]) != "WAVE" {
		return Audio{}, errors.New("stt: not a RIFF/WAVE stream")
	}

	var (
		a      Audio
		gotFmt bool
	)
	for {
		var ch [8]byte
		if _, err := io.ReadFull(r, ch[:]); err != nil {
			return Audio{}, fmt.Errorf("stt: read wav chunk: %w", err)
		}
		id := string(ch[0:4])
		size := int64(binary.LittleEndian.Uint32(ch[4:8]))

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return Audio{}, fmt.Errorf("stt: read fmt chunk: %w", err)
			}
			if len(body) < 16 {
				return Audio{}, errors.New("stt: short fmt chunk")
			}
			if format := binary.LittleEndian.Uint16(body[0:2]); format != 1 {
				return Audio{}, fmt.Errorf("stt: unsupported wav format %d", format)
			}
			if bits := binary.LittleEndian.Uint16(body[14:16]); bits != BitsPerSample {
				return Audio{}, fmt.Errorf("stt: unsupported bit depth %d", bits)
			}
			a.Channels = int(binary.LittleEndian.Uint16(body[2:4]))
			a.SampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			gotFmt = true
		case "data":
			if !gotFmt {
				return Audio{}, errors.New("stt: data chunk before fmt chunk")
			}
			pcm := make([]byte, size)
			n, err := io.ReadFull(r, pcm)
			if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
				return Audio{}, fmt.Errorf("stt: read data chunk: %w", err)
			}
			a.PCM = pcm[:n]
			return a, nil
		default:
			if _, err := io.CopyN(io.Discard, r, size+size%2); err != nil {
				return Audio{}, fmt.Errorf("stt: skip %q chunk: %w", id, err)
			}
		}
	}
}
