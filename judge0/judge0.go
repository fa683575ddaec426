// Package judge0 is a client for the Judge0 code execution API in its
// synchronous "submit and wait" mode, as served through RapidAPI.
//
// A [Client] posts one submission and blocks until Judge0 responds with the
// finished run. The response is reduced to a single [Outcome]:
//
//	client := judge0.NewClient(judge0.Config{APIKey: key})
//	outcome, err := client.Submit(ctx, judge0.Submission{
//	    Source:     `print("hi")`,
//	    LanguageID: 71,
//	})
//	if err != nil {
//	    // transport or decoding fault
//	}
//	if outcome.IsError() {
//	    fmt.Fprintln(os.Stderr, outcome.Text)
//	}
package judge0

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Kind tags which part of a Judge0 response an Outcome came from.
type Kind int

const (
	// KindUnknown means the response carried none of the known fields.
	KindUnknown Kind = iota
	// KindStdout is the program's standard output.
	KindStdout
	// KindStderr is the program's standard error.
	KindStderr
	// KindCompileOutput is the compiler's diagnostics.
	KindCompileOutput
	// KindMessage is a service-level message (quota, auth, internal error).
	KindMessage
)

func (k Kind) String() string {
	switch k {
	case KindStdout:
		return "stdout"
	case KindStderr:
		return "stderr"
	case KindCompileOutput:
		return "compile_output"
	case KindMessage:
		return "message"
	default:
		return "unknown"
	}
}

// Outcome is the single result a response is reduced to.
type Outcome struct {
	Kind   Kind
	Text   string
	Status *Status
}

// IsError reports whether the outcome should be presented as an error.
func (o Outcome) IsError() bool {
	switch o.Kind {
	case KindStderr, KindCompileOutput, KindMessage:
		return true
	default:
		return false
	}
}

// Status is Judge0's verdict for a submission.
type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// Response is the body Judge0 returns for a waited, base64 submission.
// Every field is optional.
type Response struct {
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Message       *string `json:"message"`
	Status        *Status `json:"status"`
	Time          *string `json:"time"`
	Memory        *int    `json:"memory"`
	Token         string  `json:"token"`
}

// Outcome reduces the response to one outcome. Fields are checked in order
// stdout, stderr, compile_output, message; the first non-empty one wins.
// stdout, stderr and compile_output are base64; message is plain text.
func (r Response) Outcome() (Outcome, error) {
	encoded := []struct {
		kind  Kind
		field *string
	}{
		{KindStdout, r.Stdout},
		{KindStderr, r.Stderr},
		{KindCompileOutput, r.CompileOutput},
	}
	for _, e := range encoded {
		if e.field == nil || *e.field == "" {
			continue
		}
		text, err := decode(*e.field)
		if err != nil {
			return Outcome{}, fmt.Errorf("decode %s: %w", e.kind, err)
		}
		return Outcome{Kind: e.kind, Text: text, Status: r.Status}, nil
	}
	if r.Message != nil && *r.Message != "" {
		return Outcome{Kind: KindMessage, Text: *r.Message, Status: r.Status}, nil
	}
	return Outcome{Kind: KindUnknown, Status: r.Status}, nil
}

// decode accepts base64 with embedded line breaks, which Judge0 emits for
// long outputs.
func decode(s string) (string, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, s)
	b, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}
