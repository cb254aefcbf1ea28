package frames

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
)

func field(name string, num int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(num),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   typ.Enum(),
	}
}

func variant(name string, num int32, typeName string) *descriptorpb.FieldDescriptorProto {
	f := field(name, num, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE)
	f.TypeName = proto.String(typeName)
	f.OneofIndex = proto.Int32(0)
	return f
}

// frameFile mirrors the service's frames.proto (package pipecat).
func frameFile() *descriptorpb.FileDescriptorProto {
	const (
		tUint64 = descriptorpb.FieldDescriptorProto_TYPE_UINT64
		tUint32 = descriptorpb.FieldDescriptorProto_TYPE_UINT32
		tString = descriptorpb.FieldDescriptorProto_TYPE_STRING
		tBytes  = descriptorpb.FieldDescriptorProto_TYPE_BYTES
	)
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("frames.proto"),
		Package: proto.String("pipecat"),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("TextFrame"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("id", 1, tUint64),
					field("name", 2, tString),
					field("text", 3, tString),
				},
			},
			{
				Name: proto.String("AudioRawFrame"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("id", 1, tUint64),
					field("name", 2, tString),
					field("audio", 3, tBytes),
					field("sample_rate", 4, tUint32),
					field("num_channels", 5, tUint32),
					field("pts", 6, tUint64),
				},
			},
			{
				Name: proto.String("TranscriptionFrame"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("id", 1, tUint64),
					field("name", 2, tString),
					field("text", 3, tString),
					field("user_id", 4, tString),
					field("timestamp", 5, tString),
				},
			},
			{
				Name: proto.String("Frame"),
				Field: []*descriptorpb.FieldDescriptorProto{
					variant("text", 1, ".pipecat.TextFrame"),
					variant("audio", 2, ".pipecat.AudioRawFrame"),
					variant("transcription", 3, ".pipecat.TranscriptionFrame"),
				},
				OneofDecl: []*descriptorpb.OneofDescriptorProto{
					{Name: proto.String("frame")},
				},
			},
		},
	}
}
