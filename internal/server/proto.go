package server

import (
	"fmt"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/protobuf/types/descriptorpb"
)

const (
	protoFile   = "expect/v1/rewriter.proto"
	ServiceName = "expect.v1.Rewriter"
)

// protoSource is the wire contract of the rewrite service. It is parsed at
// start-up; messages are handled as dynamic messages.
const protoSource = `syntax = "proto3";

package expect.v1;

message RewriteRequest {
  string source = 1;
  string filename = 2;
  bool strict = 3;
  bool shared_temp_name = 4;
}

message RewriteResponse {
  string source = 1;
  bool changed = 2;
  int32 sites = 3;
  string error_kind = 4;
  string error_message = 5;
  int32 error_row = 6;
  int32 error_col = 7;
  string request_id = 8;
}

message TokenizeRequest {
  string source = 1;
}

message Token {
  string kind = 1;
  string text = 2;
  int32 start_row = 3;
  int32 start_col = 4;
  int32 end_row = 5;
  int32 end_col = 6;
}

message TokenizeResponse {
  repeated Token tokens = 1;
  string error_message = 2;
  string request_id = 3;
}

service Rewriter {
  rpc Rewrite(RewriteRequest) returns (RewriteResponse);
  rpc Tokenize(TokenizeRequest) returns (TokenizeResponse);
}
`

// loadService parses protoSource and returns the Rewriter service.
func loadService() (*desc.ServiceDescriptor, error) {
	parser := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(map[string]string{protoFile: protoSource}),
	}
	fds, err := parser.ParseFiles(protoFile)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", protoFile, err)
	}
	sd := fds[0].FindService(ServiceName)
	if sd == nil {
		return nil, fmt.Errorf("service %s not found in %s", ServiceName, protoFile)
	}
	return sd, nil
}

// setField stores v in the named field, converting Go ints to the field's
// declared integer width.
func setField(msg *dynamic.Message, name string, v interface{}) error {
	fd := msg.GetMessageDescriptor().FindFieldByName(name)
	if fd == nil {
		return fmt.Errorf("%s has no field %q", msg.GetMessageDescriptor().GetFullyQualifiedName(), name)
	}
	if n, ok := v.(int); ok {
		switch fd.GetType() {
		case descriptorpb.FieldDescriptorProto_TYPE_INT32, descriptorpb.FieldDescriptorProto_TYPE_SINT32:
			v = int32(n)
		case descriptorpb.FieldDescriptorProto_TYPE_INT64, descriptorpb.FieldDescriptorProto_TYPE_SINT64:
			v = int64(n)
		}
	}
	return msg.TrySetField(fd, v)
}

func stringField(msg *dynamic.Message, name string) string {
	s, _ := msg.GetFieldByName(name).(string)
	return s
}

func boolField(msg *dynamic.Message, name string) bool {
	b, _ := msg.GetFieldByName(name).(bool)
	return b
}

func intField(msg *dynamic.Message, name string) int {
	switch n := msg.GetFieldByName(name).(type) {
	case int32:
		return int(n)
	case int64:
		return int(n)
	}
	return 0
}
