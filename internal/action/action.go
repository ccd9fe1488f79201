// Package action decodes and validates JSON action payloads submitted for
// an attempt before they reach the behaviour engine.
package action

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/abhisek/selfassess/internal/behaviour"
	"github.com/abhisek/selfassess/internal/question"
)

// Payload is one decoded action. Flags are true when the corresponding
// button was pressed; optional fields are nil when not sent.
type Payload struct {
	Answer *string `json:"answer,omitempty"`

	Save   bool `json:"save,omitempty"`
	Submit bool `json:"submit,omitempty"`
	Finish bool `json:"finish,omitempty"`
	Rate   bool `json:"rate,omitempty"`

	Stars             *int    `json:"stars,omitempty"`
	SelfComment       *string `json:"selfcomment,omitempty"`
	SelfCommentFormat *int    `json:"selfcommentformat,omitempty"`
	Comment           *string `json:"comment,omitempty"`
}

// Pending converts the payload into an engine action for userID.
func (p Payload) Pending(userID string) behaviour.Pending {
	pending := behaviour.Pending{
		Vars: behaviour.Vars{
			Submit:            p.Submit,
			Finish:            p.Finish,
			Rate:              p.Rate,
			Stars:             p.Stars,
			SelfComment:       p.SelfComment,
			SelfCommentFormat: p.SelfCommentFormat,
			Comment:           p.Comment,
		},
		UserID: userID,
	}
	if p.Answer != nil {
		pending.Response = behaviour.Response{question.AnswerVar: *p.Answer}
	}
	return pending
}

// Capabilities are the self-assessment inputs a question offers.
type Capabilities struct {
	Rate    bool
	Comment bool
}

// AllCapabilities offers both star rating and a comment.
var AllCapabilities = Capabilities{Rate: true, Comment: true}

// CapabilitiesOf reads what q offers. Rating is not offered on questions
// worth no marks.
func CapabilitiesOf(q *question.Definition) Capabilities {
	return Capabilities{
		Rate:    q.CanSelfRate() && q.HasMarks(),
		Comment: q.CanSelfComment(),
	}
}

// Expected is behaviour.ExpectedData without the variables caps does not
// offer.
func Expected(finished bool, caps Capabilities) map[string]behaviour.ParamType {
	exp := behaviour.ExpectedData(finished)
	if !finished {
		return exp
	}
	if !caps.Rate {
		delete(exp, behaviour.VarStars)
	}
	if !caps.Comment {
		delete(exp, behaviour.VarSelfComment)
		delete(exp, behaviour.VarSelfCommentFormat)
	}
	return exp
}

// ValidationError reports a payload that is not valid JSON or does not
// match the schema for the attempt's current state.
type ValidationError struct {
	Content json.RawMessage
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid action: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Decode validates raw against the schema for an attempt that is or is not
// finished at a question offering caps, and returns the decoded payload.
func Decode(raw []byte, finished bool, caps Capabilities) (Payload, error) {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Payload{}, &ValidationError{Content: raw, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	compiled, err := compiledSchema(finished, caps)
	if err != nil {
		return Payload{}, err
	}
	if err := compiled.Validate(parsed); err != nil {
		return Payload{}, &ValidationError{Content: raw, Err: fmt.Errorf("schema validation failed: %w", err)}
	}

	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, &ValidationError{Content: raw, Err: err}
	}
	return p, nil
}

// Check validates a payload built in code, such as from CLI flags, with the
// same schema Decode applies to submitted JSON.
func Check(p Payload, finished bool, caps Capabilities) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode action: %w", err)
	}
	_, err = Decode(raw, finished, caps)
	return err
}

// schemaCache caches compiled schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

func schemaName(finished bool, caps Capabilities) string {
	if !finished {
		return "action-open"
	}
	name := "action-finished"
	if caps.Rate {
		name += "-rate"
	}
	if caps.Comment {
		name += "-comment"
	}
	return name
}

func compiledSchema(finished bool, caps Capabilities) (*jsonschema.Schema, error) {
	name := schemaName(finished, caps)
	if cached, ok := schemaCache.Load(name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The compiler expects a value as produced by encoding/json, not Go
	// ints, so the definition is round-tripped through JSON.
	defBytes, err := json.Marshal(Schema(finished, caps))
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	var def any
	if err := json.Unmarshal(defBytes, &def); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", name)
	if err := c.AddResource(url, def); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %q: %w", name, err)
	}
	schemaCache.Store(name, compiled)
	return compiled, nil
}

// Schema builds the JSON schema for an action payload. The behaviour
// variables come from Expected; the answer and the button flags are always
// accepted.
func Schema(finished bool, caps Capabilities) map[string]any {
	props := map[string]any{
		question.AnswerVar:  map[string]any{"type": "string"},
		"save":              map[string]any{"type": "boolean"},
		behaviour.VarSubmit: map[string]any{"type": "boolean"},
		behaviour.VarFinish: map[string]any{"type": "boolean"},
	}
	if finished {
		props[behaviour.VarComment] = map[string]any{"type": "string"}
	}

	for name, t := range Expected(finished, caps) {
		props[name] = paramSchema(name, t)
	}

	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
}

func paramSchema(name string, t behaviour.ParamType) map[string]any {
	switch t {
	case behaviour.ParamBool:
		return map[string]any{"type": "boolean"}
	case behaviour.ParamInt:
		s := map[string]any{"type": "integer", "minimum": 0}
		if name == behaviour.VarStars {
			s["maximum"] = behaviour.MaxStars
		}
		return s
	default:
		return map[string]any{"type": "string"}
	}
}
