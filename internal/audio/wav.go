package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// OpenWAV decodes a PCM WAV file into a StreamMicrophone that replays it.
func OpenWAV(path string, opts ...StreamOption) (*StreamMicrophone, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, errors.New("not a valid wav file")
	}
	buf := &goaudio.IntBuffer{Format: &goaudio.Format{NumChannels: int(dec.NumChans), SampleRate: int(dec.SampleRate)}}
	var pcm bytes.Buffer
	chunk := make([]int, 4096)
	for {
		buf.Data = chunk
		n, err := dec.PCMBuffer(buf)
		if err != nil {
			return nil, fmt.Errorf("decode wav: %w", err)
		}
		if n == 0 {
			break
		}
		writeS16(&pcm, buf.Data[:n], int(dec.BitDepth))
	}
	return NewStreamMicrophone(bytes.NewReader(pcm.Bytes()), int(dec.SampleRate), int(dec.NumChans), opts...), nil
}

func writeS16(w *bytes.Buffer, samples []int, bitDepth int) {
	var b [2]byte
	for _, v := range samples {
		switch {
		case bitDepth > 16:
			v >>= bitDepth - 16
		case bitDepth == 8:
			v = (v - 128) << 8
		}
		binary.LittleEndian.PutUint16(b[:], uint16(int16(v)))
		w.Write(b[:])
	}
}
