package whisper_test

import (
	"encoding/binary"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/harjas-romana/calling-agent/pkg/provider/stt"
	"github.com/harjas-romana/calling-agent/pkg/provider/stt/whisper"
)

// newMockServer returns a server answering /inference with responseText and
// counting the calls it receives.
func newMockServer(t *testing.T, status int, responseText string, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/inference" {
			t.Errorf("path = %s, want /inference", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if r.FormValue("language") != "en" {
			t.Errorf("language = %q", r.FormValue("language"))
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"text":"` + responseText + `"}`))
	}))
}

// makeSpeechPCM returns samples of loud alternating PCM.
func makeSpeechPCM(samples int) []byte {
	pcm := make([]byte, samples*2)
	for i := range samples {
		v := int16(8000)
		if i%2 == 1 {
			v = -8000
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	return pcm
}

func speech() stt.Audio {
	return stt.Audio{PCM: makeSpeechPCM(1600), SampleRate: 16000, Channels: 1}
}

func TestNew_EmptyServerURL(t *testing.T) {
	t.Parallel()
	if _, err := whisper.New(""); err == nil {
		t.Fatal("expected error for empty server URL")
	}
}

func TestTranscribe_Success(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newMockServer(t, http.StatusOK, " Book a table for four. ", &calls)
	defer srv.Close()

	p, err := whisper.New(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	text, err := p.Transcribe(t.Context(), speech())
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "Book a table for four." {
		t.Errorf("text = %q", text)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestTranscribe_Silence(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newMockServer(t, http.StatusOK, "ghost", &calls)
	defer srv.Close()

	p, _ := whisper.New(srv.URL)
	_, err := p.Transcribe(t.Context(), stt.Audio{PCM: make([]byte, 3200), SampleRate: 16000, Channels: 1})
	if !errors.Is(err, stt.ErrNoSpeech) {
		t.Fatalf("err = %v, want ErrNoSpeech", err)
	}
	if calls.Load() != 0 {
		t.Errorf("server called %d times for silence", calls.Load())
	}
}

func TestTranscribe_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		text   string
		want   error
	}{
		{"server error", http.StatusInternalServerError, "", stt.ErrServiceUnavailable},
		{"empty text", http.StatusOK, "   ", stt.ErrUnintelligible},
		{"blank marker", http.StatusOK, "[BLANK_AUDIO]", stt.ErrUnintelligible},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var calls atomic.Int32
			srv := newMockServer(t, tt.status, tt.text, &calls)
			defer srv.Close()

			p, _ := whisper.New(srv.URL)
			_, err := p.Transcribe(t.Context(), speech())
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTranscribe_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p, _ := whisper.New(url)
	_, err := p.Transcribe(t.Context(), speech())
	if !errors.Is(err, stt.ErrServiceUnavailable) {
		t.Fatalf("err = %v, want ErrServiceUnavailable", err)
	}
}
