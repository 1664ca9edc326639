package pcm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// WAVHeaderSize is the size of a canonical PCM WAV header.
const WAVHeaderSize = 44

var ErrNotWAV = errors.New("not a RIFF/WAVE file")

// WAVHeader holds the format fields of a canonical 44-byte header.
type WAVHeader struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
	DataSize      uint32
}

// ReadWAVHeader reads and validates a canonical PCM WAV header from r,
// leaving r positioned at the first sample.
func ReadWAVHeader(r io.Reader) (WAVHeader, error) {
	header := make([]byte, WAVHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return WAVHeader{}, fmt.Errorf("read WAV header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return WAVHeader{}, ErrNotWAV
	}

	h := WAVHeader{
		AudioFormat:   binary.LittleEndian.Uint16(header[20:22]),
		Channels:      binary.LittleEndian.Uint16(header[22:24]),
		SampleRate:    binary.LittleEndian.Uint32(header[24:28]),
		BitsPerSample: binary.LittleEndian.Uint16(header[34:36]),
		DataSize:      binary.LittleEndian.Uint32(header[40:44]),
	}
	if h.AudioFormat != 1 {
		return h, fmt.Errorf("unsupported WAV format %d: only PCM is supported", h.AudioFormat)
	}
	if h.BitsPerSample != 16 {
		return h, fmt.Errorf("unsupported bits per sample %d", h.BitsPerSample)
	}
	return h, nil
}

// WriteWAVHeader writes a canonical header for mono/stereo 16-bit PCM.
func WriteWAVHeader(w io.Writer, sampleRate uint32, channels uint16, dataSize uint32) error {
	header := make([]byte, WAVHeaderSize)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 36+dataSize)
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1)
	binary.LittleEndian.PutUint16(header[22:24], channels)
	binary.LittleEndian.PutUint32(header[24:28], sampleRate)
	binary.LittleEndian.PutUint32(header[28:32], sampleRate*uint32(channels)*2)
	binary.LittleEndian.PutUint16(header[32:34], channels*2)
	binary.LittleEndian.PutUint16(header[34:36], 16)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataSize)
	_, err := w.Write(header)
	return err
}
