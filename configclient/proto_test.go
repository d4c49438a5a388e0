package configclient

import (
	"testing"

	proto "github.com/golang/protobuf/proto"
	"github.com/stretchr/testify/require"
)

func TestConfigInvokeMarshalUnmarshalRoundTrip(t *testing.T) {
	assert := require.New(t)

	req := &ConfigInvoke{
		Sender:         "configclient(123)",
		RemoteGlobalId: "/Dev/Sig",
		Operation:      OpSetPropertyValue,
		Path:           "Range.Low",
		ValueJson:      []byte(`-10`),
		Token:          "tok",
	}

	wire, err := proto.Marshal(req)
	assert.NoError(err)

	got := &ConfigInvoke{}
	assert.NoError(proto.Unmarshal(wire, got))

	assert.Equal(req.Sender, got.Sender)
	assert.Equal(req.RemoteGlobalId, got.RemoteGlobalId)
	assert.Equal(req.Operation, got.Operation)
	assert.Equal(req.Path, got.Path)
	assert.Equal(req.ValueJson, got.ValueJson)
	assert.Equal(req.Token, got.Token)
}

func TestConfigInvokeReplyMarshalUnmarshalRoundTrip(t *testing.T) {
	assert := require.New(t)

	reply := &ConfigInvokeReply{
		Ok:        false,
		ErrorCode: 7,
		ErrorText: "not found",
		ValueJson: []byte(`null`),
	}

	wire, err := proto.Marshal(reply)
	assert.NoError(err)

	got := &ConfigInvokeReply{}
	assert.NoError(proto.Unmarshal(wire, got))

	assert.Equal(reply.Ok, got.Ok)
	assert.Equal(reply.ErrorCode, got.ErrorCode)
	assert.Equal(reply.ErrorText, got.ErrorText)
	assert.Equal(reply.ValueJson, got.ValueJson)
}

func TestOperationStringKnownAndUnknown(t *testing.T) {
	assert := require.New(t)

	assert.Equal("SET_PROPERTY_VALUE", OpSetPropertyValue.String())
	assert.Contains(Operation(999).String(), "999")
}
