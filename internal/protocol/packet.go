package protocol

import "fmt"

// PacketType identifies the operation carried by an envelope.
// The set is closed: both ends are built from the same list and the
// codec rejects anything outside it.
type PacketType string

const (
	PacketFileRead       PacketType = "FILE_READ"
	PacketFileReadBinary PacketType = "FILE_READ_BINARY"
	PacketFileList       PacketType = "FILE_LIST"
	PacketFileWrite      PacketType = "FILE_WRITE"
	PacketFileDelete     PacketType = "FILE_DELETE"
	PacketResponse       PacketType = "response"
	PacketError          PacketType = "error"
	PacketFileChanged    PacketType = "file-changed"
)

// Action values carried by a FileChanged notification.
const (
	ActionWrite  = "write"
	ActionDelete = "delete"
)

// Packet is one typed message. A packet is either constructed directly
// (outgoing) or rebuilt from a decoded payload (incoming); the incoming
// path validates every required field and fails with ErrDecode on a
// malformed payload.
type Packet interface {
	Type() PacketType
	// CorrelationID is the envelope id. For requests it is the token the
	// response or error must echo back as requestId.
	CorrelationID() string
	// WirePayload projects the packet to its type-specific payload shape.
	WirePayload() map[string]any
}

// FileRead requests the text content of a single file.
type FileRead struct {
	ID   string
	Path string
}

func (p *FileRead) Type() PacketType      { return PacketFileRead }
func (p *FileRead) CorrelationID() string { return p.ID }
func (p *FileRead) WirePayload() map[string]any {
	return map[string]any{"path": p.Path}
}

func fileReadFromPayload(payload map[string]any, id string) (*FileRead, error) {
	path, err := stringField(payload, "path")
	if err != nil {
		return nil, err
	}
	return &FileRead{ID: id, Path: path}, nil
}

// FileReadBinary requests the content of a file as a base64 snapshot,
// for payloads that cannot travel as plain text.
type FileReadBinary struct {
	ID   string
	Path string
}

func (p *FileReadBinary) Type() PacketType      { return PacketFileReadBinary }
func (p *FileReadBinary) CorrelationID() string { return p.ID }
func (p *FileReadBinary) WirePayload() map[string]any {
	return map[string]any{"path": p.Path}
}

func fileReadBinaryFromPayload(payload map[string]any, id string) (*FileReadBinary, error) {
	path, err := stringField(payload, "path")
	if err != nil {
		return nil, err
	}
	return &FileReadBinary{ID: id, Path: path}, nil
}

// FileList requests a recursive directory listing. An absent path means
// the root of the agent's tree.
type FileList struct {
	ID   string
	Path string
}

func (p *FileList) Type() PacketType      { return PacketFileList }
func (p *FileList) CorrelationID() string { return p.ID }
func (p *FileList) WirePayload() map[string]any {
	return map[string]any{"path": p.Path}
}

func fileListFromPayload(payload map[string]any, id string) (*FileList, error) {
	path, err := optionalStringField(payload, "path", "")
	if err != nil {
		return nil, err
	}
	return &FileList{ID: id, Path: path}, nil
}

// FileWrite stores content at path, creating parent directories as needed.
type FileWrite struct {
	ID      string
	Path    string
	Content string
}

func (p *FileWrite) Type() PacketType      { return PacketFileWrite }
func (p *FileWrite) CorrelationID() string { return p.ID }
func (p *FileWrite) WirePayload() map[string]any {
	return map[string]any{"path": p.Path, "content": p.Content}
}

func fileWriteFromPayload(payload map[string]any, id string) (*FileWrite, error) {
	path, err := stringField(payload, "path")
	if err != nil {
		return nil, err
	}
	content, err := stringField(payload, "content")
	if err != nil {
		return nil, err
	}
	return &FileWrite{ID: id, Path: path, Content: content}, nil
}

// FileDelete removes the file at path.
type FileDelete struct {
	ID   string
	Path string
}

func (p *FileDelete) Type() PacketType      { return PacketFileDelete }
func (p *FileDelete) CorrelationID() string { return p.ID }
func (p *FileDelete) WirePayload() map[string]any {
	return map[string]any{"path": p.Path}
}

func fileDeleteFromPayload(payload map[string]any, id string) (*FileDelete, error) {
	path, err := stringField(payload, "path")
	if err != nil {
		return nil, err
	}
	return &FileDelete{ID: id, Path: path}, nil
}

// Response is the successful terminal message for a request. Data is
// opaque at this layer; its shape depends on the request's type.
type Response struct {
	ID        string
	RequestID string
	Data      any
}

func (p *Response) Type() PacketType      { return PacketResponse }
func (p *Response) CorrelationID() string { return p.ID }
func (p *Response) WirePayload() map[string]any {
	return map[string]any{"requestId": p.RequestID, "data": p.Data}
}

func responseFromPayload(payload map[string]any, id string) (*Response, error) {
	requestID, err := stringField(payload, "requestId")
	if err != nil {
		return nil, err
	}
	// data is opaque and may legitimately be null
	return &Response{ID: id, RequestID: requestID, Data: payload["data"]}, nil
}

// RemoteError is the failing terminal message for a request. Code is an
// optional machine-readable tag such as "ENOENT".
type RemoteError struct {
	ID        string
	RequestID string
	Message   string
	Code      string
}

func (p *RemoteError) Type() PacketType      { return PacketError }
func (p *RemoteError) CorrelationID() string { return p.ID }
func (p *RemoteError) WirePayload() map[string]any {
	payload := map[string]any{"requestId": p.RequestID, "message": p.Message}
	if p.Code != "" {
		payload["code"] = p.Code
	}
	return payload
}

func remoteErrorFromPayload(payload map[string]any, id string) (*RemoteError, error) {
	requestID, err := stringField(payload, "requestId")
	if err != nil {
		return nil, err
	}
	message, err := stringField(payload, "message")
	if err != nil {
		return nil, err
	}
	code, err := optionalStringField(payload, "code", "")
	if err != nil {
		return nil, err
	}
	return &RemoteError{ID: id, RequestID: requestID, Message: message, Code: code}, nil
}

// FileChanged announces a mutation on the agent's tree. It carries no
// requestId: it is fanned out to every listener, not correlated.
type FileChanged struct {
	ID     string
	Path   string
	Action string
}

func (p *FileChanged) Type() PacketType      { return PacketFileChanged }
func (p *FileChanged) CorrelationID() string { return p.ID }
func (p *FileChanged) WirePayload() map[string]any {
	return map[string]any{"path": p.Path, "action": p.Action}
}

func fileChangedFromPayload(payload map[string]any, id string) (*FileChanged, error) {
	path, err := stringField(payload, "path")
	if err != nil {
		return nil, err
	}
	action, err := stringField(payload, "action")
	if err != nil {
		return nil, err
	}
	if action != ActionWrite && action != ActionDelete {
		return nil, fmt.Errorf("%w: action %q is not %q or %q", ErrDecode, action, ActionWrite, ActionDelete)
	}
	return &FileChanged{ID: id, Path: path, Action: action}, nil
}
