package pdfservices

import "fmt"

// ErrorKind classifies a protocol failure. Every kind is terminal for the
// job being processed; none is retried by the worker.
type ErrorKind string

const (
	// KindAuth covers token-issuance failures.
	KindAuth ErrorKind = "auth"
	// KindTransport covers non-success HTTP responses during asset
	// reservation, binary upload, or result download.
	KindTransport ErrorKind = "transport"
	// KindJobCreate covers rejection of the extraction job request.
	KindJobCreate ErrorKind = "job_create"
	// KindPollTimeout means no terminal poll status within the attempt ceiling.
	KindPollTimeout ErrorKind = "poll_timeout"
	// KindJobFailed means the service itself reported the conversion failed.
	KindJobFailed ErrorKind = "job_failed"
)

// ProtocolError is the classified failure returned by Extract. Detail and
// StatusCode carry enough to log; they are never shown to users verbatim.
type ProtocolError struct {
	Kind       ErrorKind
	Phase      string
	StatusCode int
	Detail     string
	Err        error
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("pdfservices %s: %s", e.Phase, e.Kind)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s status=%d", msg, e.StatusCode)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s detail=%s", msg, e.Detail)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ProtocolError) Unwrap() error { return e.Err }
