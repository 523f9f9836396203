// Package audio holds the minimal WAV plumbing for push-to-talk uploads
// and synthesized speech replies. Mono PCM16LE only.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	DefaultSampleRate = 16000

	headerSize    = 44
	numChannels   = 1
	bitsPerSample = 16
)

var ErrNotWAV = errors.New("audio: not a RIFF/WAVE stream")

// Info describes a validated WAV payload.
type Info struct {
	SampleRate int
	Channels   int
	BitDepth   int
	DataBytes  int
}

// EncodeWAVPCM16LE wraps raw PCM16LE mono samples in a WAV container.
func EncodeWAVPCM16LE(pcm []byte, sampleRate int) []byte {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	byteRate := sampleRate * numChannels * bitsPerSample / 8

	buf := bytes.NewBuffer(make([]byte, 0, headerSize+len(pcm)))
	buf.WriteString("RIFF")
	le32(buf, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	le32(buf, 16)
	le16(buf, 1) // PCM
	le16(buf, numChannels)
	le32(buf, uint32(sampleRate))
	le32(buf, uint32(byteRate))
	le16(buf, uint16(numChannels*bitsPerSample/8))
	le16(buf, bitsPerSample)

	buf.WriteString("data")
	le32(buf, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}

// ValidateWAV checks the header of an uploaded clip and returns its layout.
// It accepts any PCM sample rate; channel and depth must match the kiosk
// capture format.
func ValidateWAV(data []byte) (Info, error) {
	if len(data) < headerSize {
		return Info{}, ErrNotWAV
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Info{}, ErrNotWAV
	}
	if string(data[12:16]) != "fmt " {
		return Info{}, fmt.Errorf("audio: missing fmt chunk")
	}

	format := binary.LittleEndian.Uint16(data[20:22])
	if format != 1 {
		return Info{}, fmt.Errorf("audio: unsupported format %d, want PCM", format)
	}
	info := Info{
		Channels:   int(binary.LittleEndian.Uint16(data[22:24])),
		SampleRate: int(binary.LittleEndian.Uint32(data[24:28])),
		BitDepth:   int(binary.LittleEndian.Uint16(data[34:36])),
	}
	if info.Channels != numChannels {
		return Info{}, fmt.Errorf("audio: %d channels, want mono", info.Channels)
	}
	if info.BitDepth != bitsPerSample {
		return Info{}, fmt.Errorf("audio: %d-bit samples, want 16", info.BitDepth)
	}
	if info.SampleRate <= 0 {
		return Info{}, fmt.Errorf("audio: invalid sample rate %d", info.SampleRate)
	}
	info.DataBytes = len(data) - headerSize
	return info, nil
}

func le16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func le32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}
