package wireformat

import "github.com/wasmfn/wasmfn/domain/entities"

// InvocationRequest is the transport message a client sends to run a guest function.
type InvocationRequest struct {
	ID       string `json:"id" codec:"id"`
	Function string `json:"function" codec:"function"`
	Payload  []byte `json:"payload" codec:"payload"`
}

// InvocationResponse is the single reply to an InvocationRequest.
// Exactly one of Output and Error is meaningful.
type InvocationResponse struct {
	Error  *entities.ErrorDetail `json:"error,omitempty" codec:"error,omitempty"`
	ID     string                `json:"id" codec:"id"`
	Output []byte                `json:"output,omitempty" codec:"output,omitempty"`
}

// Failed reports whether the response carries an error.
func (r InvocationResponse) Failed() bool {
	return r.Error != nil
}
