// Package wire encodes query datagrams exchanged between the client and the
// server as protobuf Struct messages.
package wire

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const MAX_DATAGRAM = 1024 * 8 // Max JWT size is 8KB

var ErrMalformed = errors.New("malformed message")

type Request struct {
	Token     string
	Direction string
	Protocol  string
	Port      int
	Address   string
}

type Reply struct {
	RequestID string
	Accept    bool
	Error     string
}

func (r Request) Marshal() ([]byte, error) {
	msg, err := structpb.NewStruct(map[string]interface{}{
		"token":     r.Token,
		"direction": r.Direction,
		"protocol":  r.Protocol,
		"port":      r.Port,
		"address":   r.Address,
	})
	if err != nil {
		return nil, err
	}
	return marshal(msg)
}

func UnmarshalRequest(data []byte) (Request, error) {
	fields, err := unmarshal(data)
	if err != nil {
		return Request{}, err
	}

	port, err := integer(fields, "port")
	if err != nil {
		return Request{}, err
	}
	req := Request{
		Token:     fields["token"].GetStringValue(),
		Direction: fields["direction"].GetStringValue(),
		Protocol:  fields["protocol"].GetStringValue(),
		Port:      port,
		Address:   fields["address"].GetStringValue(),
	}
	if req.Direction == "" || req.Protocol == "" || req.Address == "" {
		return Request{}, fmt.Errorf("%w: direction, protocol and address are required", ErrMalformed)
	}
	return req, nil
}

func (r Reply) Marshal() ([]byte, error) {
	msg, err := structpb.NewStruct(map[string]interface{}{
		"request_id": r.RequestID,
		"accept":     r.Accept,
		"error":      r.Error,
	})
	if err != nil {
		return nil, err
	}
	return marshal(msg)
}

func UnmarshalReply(data []byte) (Reply, error) {
	fields, err := unmarshal(data)
	if err != nil {
		return Reply{}, err
	}
	return Reply{
		RequestID: fields["request_id"].GetStringValue(),
		Accept:    fields["accept"].GetBoolValue(),
		Error:     fields["error"].GetStringValue(),
	}, nil
}

func marshal(msg *structpb.Struct) ([]byte, error) {
	data, err := proto.Marshal(msg)
	if err != nil {
		return nil, err
	}
	if len(data) > MAX_DATAGRAM {
		return nil, fmt.Errorf("message of %d bytes exceeds %d byte datagram", len(data), MAX_DATAGRAM)
	}
	return data, nil
}

func unmarshal(data []byte) (map[string]*structpb.Value, error) {
	var msg structpb.Struct
	if err := proto.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return msg.GetFields(), nil
}

func integer(fields map[string]*structpb.Value, name string) (int, error) {
	v, ok := fields[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s is required", ErrMalformed, name)
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be a number", ErrMalformed, name)
	}
	if n.NumberValue != math.Trunc(n.NumberValue) || math.Abs(n.NumberValue) > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrMalformed, name)
	}
	return int(n.NumberValue), nil
}
