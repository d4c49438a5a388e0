package configclient

import (
	fmt "fmt"

	proto "github.com/golang/protobuf/proto"
)

// Operation is the RPC method a ConfigInvoke message carries, modeled on
// common/cfgmsg.ConfigOp's Operation enum (design §4.I): a small closed
// set of the configuration protocol's verbs rather than one message type
// per verb.
type Operation int32

const (
	OpGetPropertyValue Operation = iota
	OpSetPropertyValue
	OpSetProtectedPropertyValue
	OpClearPropertyValue
	OpBeginUpdate
	OpEndUpdate
	OpUpdate
	OpConnectPort
	OpDisconnectPort
	OpAddChild
	OpRemoveChild
	OpCallFunction
)

var operationNames = map[Operation]string{
	OpGetPropertyValue:          "GET_PROPERTY_VALUE",
	OpSetPropertyValue:          "SET_PROPERTY_VALUE",
	OpSetProtectedPropertyValue: "SET_PROTECTED_PROPERTY_VALUE",
	OpClearPropertyValue:        "CLEAR_PROPERTY_VALUE",
	OpBeginUpdate:               "BEGIN_UPDATE",
	OpEndUpdate:                 "END_UPDATE",
	OpUpdate:                    "UPDATE",
	OpConnectPort:               "CONNECT_PORT",
	OpDisconnectPort:            "DISCONNECT_PORT",
	OpAddChild:                  "ADD_CHILD",
	OpRemoveChild:               "REMOVE_CHILD",
	OpCallFunction:              "CALL_FUNCTION",
}

func (o Operation) String() string {
	if n, ok := operationNames[o]; ok {
		return n
	}
	return fmt.Sprintf("Operation(%d)", int32(o))
}

// ConfigInvoke is the RPC request envelope, hand-authored in the old
// (pre-APIv2) protobuf reflection style common/cfgmsg.ConfigQuery uses:
// struct tags plus Reset/String/ProtoMessage so it satisfies
// github.com/golang/protobuf/proto.Message without a .proto-generated
// counterpart (design §9, Open Questions — no .proto sources survived the
// retrieval pack's filtering).
type ConfigInvoke struct {
	Sender       string    `protobuf:"bytes,1,opt,name=sender" json:"sender,omitempty"`
	RemoteGlobalId string  `protobuf:"bytes,2,opt,name=remote_global_id" json:"remote_global_id,omitempty"`
	Operation    Operation `protobuf:"varint,3,opt,name=operation,enum=configclient.Operation" json:"operation,omitempty"`
	Path         string    `protobuf:"bytes,4,opt,name=path" json:"path,omitempty"`
	ValueJson    []byte    `protobuf:"bytes,5,opt,name=value_json" json:"value_json,omitempty"`
	Token        string    `protobuf:"bytes,6,opt,name=token" json:"token,omitempty"`
}

// Reset, String, and ProtoMessage implement proto.Message (the v1.3.2
// reflection-based interface).
func (m *ConfigInvoke) Reset()         { *m = ConfigInvoke{} }
func (m *ConfigInvoke) String() string { return proto.CompactTextString(m) }
func (*ConfigInvoke) ProtoMessage()    {}

// ConfigInvokeReply is the RPC response envelope.
type ConfigInvokeReply struct {
	Ok         bool   `protobuf:"varint,1,opt,name=ok" json:"ok,omitempty"`
	ErrorCode  int32  `protobuf:"varint,2,opt,name=error_code" json:"error_code,omitempty"`
	ErrorText  string `protobuf:"bytes,3,opt,name=error_text" json:"error_text,omitempty"`
	ValueJson  []byte `protobuf:"bytes,4,opt,name=value_json" json:"value_json,omitempty"`
}

func (m *ConfigInvokeReply) Reset()         { *m = ConfigInvokeReply{} }
func (m *ConfigInvokeReply) String() string { return proto.CompactTextString(m) }
func (*ConfigInvokeReply) ProtoMessage()    {}

func init() {
	proto.RegisterType((*ConfigInvoke)(nil), "configclient.ConfigInvoke")
	proto.RegisterType((*ConfigInvokeReply)(nil), "configclient.ConfigInvokeReply")
}
