package audio

import (
	"errors"
	"testing"
)

func TestEncodeValidateRoundTrip(t *testing.T) {
	pcm := make([]byte, 320)
	wav := EncodeWAVPCM16LE(pcm, 16000)

	info, err := ValidateWAV(wav)
	if err != nil {
		t.Fatalf("ValidateWAV: %v", err)
	}
	if info.SampleRate != 16000 || info.Channels != 1 || info.BitDepth != 16 {
		t.Fatalf("info = %+v", info)
	}
	if info.DataBytes != len(pcm) {
		t.Fatalf("DataBytes = %d, want %d", info.DataBytes, len(pcm))
	}
}

func TestEncodeDefaultsSampleRate(t *testing.T) {
	info, err := ValidateWAV(EncodeWAVPCM16LE(nil, 0))
	if err != nil {
		t.Fatalf("ValidateWAV: %v", err)
	}
	if info.SampleRate != DefaultSampleRate {
		t.Fatalf("SampleRate = %d, want %d", info.SampleRate, DefaultSampleRate)
	}
}

func TestValidateWAVRejectsGarbage(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":     nil,
		"too short": []byte("RIFF"),
		"not riff":  make([]byte, 64),
	} {
		if _, err := ValidateWAV(data); !errors.Is(err, ErrNotWAV) {
			t.Fatalf("%s: err = %v, want ErrNotWAV", name, err)
		}
	}
}

func TestValidateWAVRejectsStereo(t *testing.T) {
	wav := EncodeWAVPCM16LE(make([]byte, 32), 16000)
	wav[22] = 2 // channel count
	if _, err := ValidateWAV(wav); err == nil {
		t.Fatalf("stereo clip accepted")
	}
}
