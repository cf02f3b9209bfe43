package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/palemoky/uno-lobby/internal/protocol"
)

// Codec 消息帧编解码器
type Codec interface {
	Name() string
	// FrameType 返回 websocket 帧类型
	FrameType() int
	Encode(msg *protocol.Message) ([]byte, error)
	Decode(data []byte) (*protocol.Message, error)
}

const (
	NameJSON  = "json"
	NameProto = "proto"
)

var ErrMissingType = errors.New("message type is required")

// ForName 按名称选择编解码器，未知名称回退到 JSON
func ForName(name string) Codec {
	if name == NameProto {
		return Proto{}
	}
	return JSON{}
}

// JSON 文本帧编解码
type JSON struct{}

func (JSON) Name() string   { return NameJSON }
func (JSON) FrameType() int { return websocket.TextMessage }

func (JSON) Encode(msg *protocol.Message) ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if err := json.NewEncoder(buf).Encode(msg); err != nil {
		return nil, err
	}
	// Encoder 追加换行，拷贝出来以便 buffer 归还
	out := make([]byte, buf.Len()-1)
	copy(out, buf.Bytes())
	return out, nil
}

func (JSON) Decode(data []byte) (*protocol.Message, error) {
	msg := &protocol.Message{}
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, err
	}
	if msg.Type == "" {
		return nil, ErrMissingType
	}
	return msg, nil
}

// Proto 二进制帧编解码，消息体为 google.protobuf.Struct
type Proto struct{}

func (Proto) Name() string   { return NameProto }
func (Proto) FrameType() int { return websocket.BinaryMessage }

func (Proto) Encode(msg *protocol.Message) ([]byte, error) {
	fields := map[string]any{"type": string(msg.Type)}
	if len(msg.Payload) > 0 {
		var payload any
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return nil, fmt.Errorf("proto encode payload: %w", err)
		}
		fields["payload"] = payload
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("proto encode: %w", err)
	}
	return proto.Marshal(s)
}

func (Proto) Decode(data []byte) (*protocol.Message, error) {
	s := &structpb.Struct{}
	if err := proto.Unmarshal(data, s); err != nil {
		return nil, err
	}
	msgType := s.GetFields()["type"].GetStringValue()
	if msgType == "" {
		return nil, ErrMissingType
	}
	msg := &protocol.Message{Type: protocol.MessageType(msgType)}
	if v, ok := s.GetFields()["payload"]; ok {
		payload, err := json.Marshal(v.AsInterface())
		if err != nil {
			return nil, err
		}
		msg.Payload = payload
	}
	return msg, nil
}
