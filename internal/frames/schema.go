// Package frames encodes and decodes the binary frames exchanged over the
// control socket. The message layout is defined by the service; this package
// builds it at runtime and never interprets the wire bytes itself.
package frames

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/dynamicpb"
)

const (
	DefaultSampleRate  = 16000
	DefaultNumChannels = 1
)

type Kind int

const (
	KindUnknown Kind = iota
	KindText
	KindAudio
	KindTranscription
)

// Decoded is the host-facing view of an inbound frame.
type Decoded struct {
	Kind        Kind
	Text        string
	Audio       []byte
	SampleRate  uint32
	NumChannels uint32
	UserID      string
	Timestamp   string
}

var ErrEmptyFrame = errors.New("frame carries no variant")

// Schema holds the resolved frame descriptors.
type Schema struct {
	frame         protoreflect.MessageDescriptor
	text          protoreflect.MessageDescriptor
	audio         protoreflect.MessageDescriptor
	transcription protoreflect.MessageDescriptor
}

// Load resolves the frame schema.
func Load() (*Schema, error) {
	fd, err := protodesc.NewFile(frameFile(), new(protoregistry.Files))
	if err != nil {
		return nil, fmt.Errorf("build frame schema: %w", err)
	}
	msgs := fd.Messages()
	s := &Schema{
		frame:         msgs.ByName("Frame"),
		text:          msgs.ByName("TextFrame"),
		audio:         msgs.ByName("AudioRawFrame"),
		transcription: msgs.ByName("TranscriptionFrame"),
	}
	if s.frame == nil || s.text == nil || s.audio == nil || s.transcription == nil {
		return nil, errors.New("frame schema is incomplete")
	}
	return s, nil
}

// EncodeAudio wraps s16le PCM into an audio frame.
func (s *Schema) EncodeAudio(pcm []byte, sampleRate, numChannels uint32) ([]byte, error) {
	audio := dynamicpb.NewMessage(s.audio)
	set(audio, "audio", protoreflect.ValueOfBytes(pcm))
	set(audio, "sample_rate", protoreflect.ValueOfUint32(sampleRate))
	set(audio, "num_channels", protoreflect.ValueOfUint32(numChannels))
	return s.wrap("audio", audio)
}

// EncodeText wraps text to speak into a text frame.
func (s *Schema) EncodeText(text string) ([]byte, error) {
	msg := dynamicpb.NewMessage(s.text)
	set(msg, "text", protoreflect.ValueOfString(text))
	return s.wrap("text", msg)
}

// EncodeTranscription builds the frame the service sends for recognized speech.
func (s *Schema) EncodeTranscription(text, userID, timestamp string) ([]byte, error) {
	msg := dynamicpb.NewMessage(s.transcription)
	set(msg, "text", protoreflect.ValueOfString(text))
	set(msg, "user_id", protoreflect.ValueOfString(userID))
	set(msg, "timestamp", protoreflect.ValueOfString(timestamp))
	return s.wrap("transcription", msg)
}

func (s *Schema) Decode(b []byte) (*Decoded, error) {
	frame := dynamicpb.NewMessage(s.frame)
	if err := proto.Unmarshal(b, frame); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	field := frame.WhichOneof(s.frame.Oneofs().ByName("frame"))
	if field == nil {
		return nil, ErrEmptyFrame
	}
	inner := frame.Get(field).Message()
	switch field.Name() {
	case "text":
		return &Decoded{Kind: KindText, Text: str(inner, "text")}, nil
	case "audio":
		return &Decoded{
			Kind:        KindAudio,
			Audio:       inner.Get(inner.Descriptor().Fields().ByName("audio")).Bytes(),
			SampleRate:  u32(inner, "sample_rate"),
			NumChannels: u32(inner, "num_channels"),
		}, nil
	case "transcription":
		return &Decoded{
			Kind:      KindTranscription,
			Text:      str(inner, "text"),
			UserID:    str(inner, "user_id"),
			Timestamp: str(inner, "timestamp"),
		}, nil
	}
	return &Decoded{Kind: KindUnknown}, nil
}

func (s *Schema) wrap(variant protoreflect.Name, inner *dynamicpb.Message) ([]byte, error) {
	frame := dynamicpb.NewMessage(s.frame)
	frame.Set(s.frame.Fields().ByName(variant), protoreflect.ValueOfMessage(inner))
	b, err := proto.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", variant, err)
	}
	return b, nil
}

func set(m *dynamicpb.Message, name protoreflect.Name, v protoreflect.Value) {
	m.Set(m.Descriptor().Fields().ByName(name), v)
}

func str(m protoreflect.Message, name protoreflect.Name) string {
	return m.Get(m.Descriptor().Fields().ByName(name)).String()
}

func u32(m protoreflect.Message, name protoreflect.Name) uint32 {
	return uint32(m.Get(m.Descriptor().Fields().ByName(name)).Uint())
}
